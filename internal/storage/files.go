package storage

import (
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"
)

// FileServer serves receipt images from fsys to holders of a URL issued by SignedURL. Mount it
// under the path prefix of the configured base URL with http.StripPrefix.
func (s *Signer) FileServer(fsys fs.FS) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimLeft(r.URL.Path, "/")
		if !fs.ValidPath(name) || name == "." {
			http.NotFound(w, r)
			return
		}

		if err := s.Verify(name, r.URL.Query().Get("token")); err != nil {
			slog.Warn("rejected file request", "path", name, "error", err)
			http.Error(w, "forbidden", http.StatusForbidden)

			return
		}

		http.ServeFileFS(w, r, fsys, name)
	})
}

// DirFS is the receipt store rooted at dir on local disk.
func DirFS(dir string) fs.FS {
	return os.DirFS(dir)
}
