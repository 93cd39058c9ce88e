package papyrus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestDumpName(t *testing.T) {
	tests := []struct {
		stereo, plusplus bool
		want             string
	}{
		{false, false, "papyrus_2d.tsv.gz"},
		{true, false, "papyrus_3d.tsv.gz"},
		{false, true, "papyrus_pp.tsv.gz"},
		{true, true, "papyrus_pp.tsv.gz"}, // plusplus wins
	}
	for _, tt := range tests {
		if got := DumpName(tt.stereo, tt.plusplus); got != tt.want {
			t.Errorf("DumpName(%t, %t) = %s, want %s", tt.stereo, tt.plusplus, got, tt.want)
		}
	}
}

func TestEnsureDump(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.URL.Path != "/"+DumpName(false, false) {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("dump payload"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	client := NewClient(srv.URL)

	path, err := client.EnsureDump(context.Background(), dir, false, false)
	if err != nil {
		t.Fatalf("EnsureDump failed: %v", err)
	}
	if path != filepath.Join(dir, DumpName(false, false)) {
		t.Errorf("path = %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "dump payload" {
		t.Errorf("downloaded content = %q", data)
	}
	if requests != 1 {
		t.Errorf("requests = %d, want 1", requests)
	}

	// A present dump is reused without touching the server.
	if _, err := client.EnsureDump(context.Background(), dir, false, false); err != nil {
		t.Fatalf("second EnsureDump failed: %v", err)
	}
	if requests != 1 {
		t.Errorf("requests after reuse = %d, want 1", requests)
	}

	// No truncated file is left behind on a failed download.
	if _, err := client.EnsureDump(context.Background(), dir, true, false); err == nil {
		t.Fatal("EnsureDump succeeded for a missing server file")
	}
	if _, err := os.Stat(filepath.Join(dir, DumpName(true, false))); !os.IsNotExist(err) {
		t.Errorf("failed download left a file behind: %v", err)
	}
}
