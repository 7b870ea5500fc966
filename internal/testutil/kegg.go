package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// MolBlock renders a V2000 molfile with atoms laid out on a zigzag. Bonds are
// {from, to, order} with 1-based atom indices.
func MolBlock(atoms []string, bonds [][3]int) string {
	var sb strings.Builder
	sb.WriteString("\n  -KEGG-\n\n")
	fmt.Fprintf(&sb, "%3d%3d  0  0  0  0  0  0  0  0999 V2000\n", len(atoms), len(bonds))
	for i, sym := range atoms {
		fmt.Fprintf(&sb, "%10.4f%10.4f%10.4f %-3s 0  0  0  0  0  0  0  0  0  0  0  0\n",
			float64(i)*1.2, float64(i%2)*0.7, 0.0, sym)
	}
	for _, b := range bonds {
		fmt.Fprintf(&sb, "%3d%3d%3d  0     0  0\n", b[0], b[1], b[2])
	}
	sb.WriteString("M  END\n")
	return sb.String()
}

// KEGGServer is a fake KEGG REST endpoint. Identifiers without a canned
// response answer 503 so every attempt fails.
type KEGGServer struct {
	*httptest.Server

	mu      sync.Mutex
	mols    map[string]string
	entries map[string]string
	hits    map[string]int
}

func NewKEGGServer() *KEGGServer {
	s := &KEGGServer{
		mols:    map[string]string{},
		entries: map[string]string{},
		hits:    map[string]int{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

func (s *KEGGServer) AddMol(id, mol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mols[id] = mol
}

func (s *KEGGServer) AddEntry(id, entry string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = entry
}

// Hits returns how many requests reached path.
func (s *KEGGServer) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *KEGGServer) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	var (
		body string
		ok   bool
	)
	rest := strings.TrimPrefix(r.URL.Path, "/get/")
	if id, found := strings.CutSuffix(rest, "/mol"); found {
		body, ok = s.mols[id]
	} else {
		body, ok = s.entries[rest]
	}
	s.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	_, _ = w.Write([]byte(body))
}
