// Package ops moves records between a store and a portable tar.gz archive.
// Entries are named "{collection}/{key}.json", so an archive taken from one
// store driver restores into any other.
package ops

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/Leumas-Tech/leumas-education/internal/store"
)

const entrySuffix = ".json"

// Collections lists every collection the service writes for slugs.
func Collections(slugs []string) []string {
	out := []string{store.IDs}
	for _, s := range slugs {
		out = append(out, store.Tasks(s), store.Chats(s), store.Grass(s))
	}
	return out
}

// Export writes every record of collections to w and returns the record count.
func Export(ctx context.Context, st store.Store, collections []string, w io.Writer) (int, error) {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	n := 0
	for _, coll := range collections {
		keys, err := st.ListKeys(ctx, coll, "")
		if err != nil {
			return n, fmt.Errorf("list %s: %w", coll, err)
		}
		for _, key := range keys {
			b, err := st.Read(ctx, coll, key)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return n, err
			}
			hdr := &tar.Header{
				Name:     coll + "/" + key + entrySuffix,
				Mode:     0o644,
				Size:     int64(len(b)),
				ModTime:  time.Unix(0, 0),
				Typeflag: tar.TypeReg,
			}
			if err := tw.WriteHeader(hdr); err != nil {
				return n, err
			}
			if _, err := tw.Write(b); err != nil {
				return n, err
			}
			n++
		}
	}

	if err := tw.Close(); err != nil {
		return n, err
	}
	return n, gz.Close()
}

// Import writes every record in the archive to st and returns the record count.
func Import(ctx context.Context, st store.Store, r io.Reader) (int, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return 0, err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	n := 0
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		coll, key, err := splitEntry(hdr.Name)
		if err != nil {
			return n, err
		}
		b, err := io.ReadAll(tr)
		if err != nil {
			return n, err
		}
		if err := st.Write(ctx, coll, key, b); err != nil {
			return n, fmt.Errorf("write %s/%s: %w", coll, key, err)
		}
		n++
	}
}

// splitEntry rejects absolute and escaping names.
func splitEntry(name string) (collection, key string, err error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, `\`) {
		return "", "", fmt.Errorf("invalid archive entry %q", name)
	}
	clean := path.Clean(name)
	if clean != name || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", "", fmt.Errorf("invalid archive entry path traversal: %s", name)
	}
	if !strings.HasSuffix(clean, entrySuffix) {
		return "", "", fmt.Errorf("unexpected archive entry %q", name)
	}
	i := strings.LastIndex(clean, "/")
	if i <= 0 {
		return "", "", fmt.Errorf("archive entry %q has no collection", name)
	}
	return clean[:i], strings.TrimSuffix(clean[i+1:], entrySuffix), nil
}

// Digest hashes every record of collections in key order. Two stores with
// the same records have the same digest.
func Digest(ctx context.Context, st store.Store, collections []string) (string, error) {
	colls := append([]string(nil), collections...)
	sort.Strings(colls)

	h := sha256.New()
	for _, coll := range colls {
		keys, err := st.ListKeys(ctx, coll, "")
		if err != nil {
			return "", err
		}
		for _, key := range keys {
			b, err := st.Read(ctx, coll, key)
			if err != nil {
				return "", err
			}
			_, _ = io.WriteString(h, coll+"/"+key+"\n")
			_, _ = h.Write(b)
			_, _ = io.WriteString(h, "\n")
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
