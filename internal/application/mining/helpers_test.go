package mining

import (
	"context"
	"sync"

	"github.com/turtacn/keggminer/internal/domain/compound"
	"github.com/turtacn/keggminer/internal/testutil"
	"github.com/turtacn/keggminer/pkg/errors"
)

// Molfiles in the layout served by /get/<id>/mol.
var (
	ethanolMol = molBlock([]string{"C", "C", "O"}, [][3]int{{1, 2, 1}, {2, 3, 1}})
	benzeneMol = molBlock([]string{"C", "C", "C", "C", "C", "C"},
		[][3]int{{1, 2, 2}, {2, 3, 1}, {3, 4, 2}, {4, 5, 1}, {5, 6, 2}, {6, 1, 1}})
	propanolMol = molBlock([]string{"C", "C", "C", "O"}, [][3]int{{1, 2, 1}, {2, 3, 1}, {3, 4, 1}})
)

const ethanolEntry = `ENTRY       C00469                      Compound
NAME        Ethanol;
            Ethyl alcohol
FORMULA     C2H6O
EXACT_MASS  46.0419
///
`

var molBlock = testutil.MolBlock

// stubFetcher serves canned responses per identifier. Unknown identifiers
// fail like an exhausted retry loop.
type stubFetcher struct {
	mu      sync.Mutex
	mols    map[compound.ID]string
	entries map[compound.ID]string
	calls   map[compound.ID]int
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		mols:    map[compound.ID]string{},
		entries: map[compound.ID]string{},
		calls:   map[compound.ID]int{},
	}
}

func (s *stubFetcher) Fetch(ctx context.Context, id compound.ID) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[id]++
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCanceled, "fetch canceled")
	}
	mol, ok := s.mols[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeKEGGNoData, "no data retrieved").WithDetail(id.String())
	}
	return []byte(mol), nil
}

func (s *stubFetcher) FetchWithMetadata(ctx context.Context, id compound.ID) ([]byte, []byte, error) {
	mol, err := s.Fetch(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, nil, errors.New(errors.ErrCodeKEGGNoData, "no data retrieved").WithDetail(id.String())
	}
	return mol, []byte(entry), nil
}

func (s *stubFetcher) callCount(id compound.ID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[id]
}

func idList(values ...string) []compound.ID {
	out := make([]compound.ID, len(values))
	for i, v := range values {
		out[i] = compound.ID(v)
	}
	return out
}
