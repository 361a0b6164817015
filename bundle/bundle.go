package bundle

import (
	"archive/zip"
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jongio/vmc/api"
	"github.com/jongio/vmc/logutil"
	"github.com/jongio/vmc/security"
)

// Entry is one file of an application bundle. Path is slash-separated and
// relative to the bundle root; LinkTarget is the resolved absolute target
// when IsLink is set.
type Entry struct {
	Path       string
	AbsPath    string
	Size       int64
	Mode       fs.FileMode
	ModTime    time.Time
	IsLink     bool
	LinkTarget string
}

// SumCache remembers file digests between runs.
type SumCache interface {
	Lookup(key string) (string, bool)
	Store(key, sum string)
}

// Scan lists the uploadable files under root in lexical order.
// Links to regular files are included with the target's size; links to
// directories and broken links are skipped.
func Scan(root string) ([]Entry, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving bundle root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("bundle root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("bundle root %s is not a directory", absRoot)
	}

	matcher, err := LoadMatcher(absRoot)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", IgnoreFile, err)
	}

	log := logutil.NewLogger("bundle").WithOperation("scan")
	var entries []Entry

	err = filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == absRoot {
			return nil
		}

		rel, err := filepath.Rel(absRoot, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if matcher.Match(rel, d.IsDir()) {
			log.Debug("ignored", "path", rel)
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			target, err := security.ResolveLink(p)
			if err != nil {
				return err
			}
			ti, err := os.Stat(p)
			if err != nil || !ti.Mode().IsRegular() {
				log.Debug("skipping link", "path", rel, "target", target)
				return nil
			}
			entries = append(entries, Entry{
				Path:       rel,
				AbsPath:    p,
				Size:       ti.Size(),
				Mode:       ti.Mode(),
				ModTime:    ti.ModTime(),
				IsLink:     true,
				LinkTarget: target,
			})
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		entries = append(entries, Entry{
			Path:    rel,
			AbsPath: p,
			Size:    fi.Size(),
			Mode:    fi.Mode(),
			ModTime: fi.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// TotalSize sums the sizes of entries.
func TotalSize(entries []Entry) int64 {
	var total int64
	for _, e := range entries {
		total += e.Size
	}
	return total
}

// Fingerprints returns a resource record per entry.
func Fingerprints(entries []Entry) ([]api.Resource, error) {
	return FingerprintsCached(entries, nil)
}

// FingerprintsCached is Fingerprints reusing digests from sums for files
// whose path, size and modification time are unchanged. sums may be nil.
func FingerprintsCached(entries []Entry, sums SumCache) ([]api.Resource, error) {
	resources := make([]api.Resource, 0, len(entries))
	for _, e := range entries {
		key := digestKey(e)
		sum, ok := "", false
		if sums != nil {
			sum, ok = sums.Lookup(key)
		}
		if !ok {
			var err error
			if sum, err = fileSHA1(e.AbsPath); err != nil {
				return nil, fmt.Errorf("fingerprinting %s: %w", e.Path, err)
			}
			if sums != nil {
				sums.Store(key, sum)
			}
		}
		resources = append(resources, api.Resource{Size: e.Size, SHA1: sum, FN: e.Path})
	}
	return resources, nil
}

func digestKey(e Entry) string {
	return e.AbsPath + "|" + strconv.FormatInt(e.Size, 10) + "|" + strconv.FormatInt(e.ModTime.UnixNano(), 10)
}

func fileSHA1(p string) (string, error) {
	f, err := os.Open(p)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Pack zips every entry not listed in known (matched by name and SHA-1).
// It returns nil when there is nothing left to send.
func Pack(entries []Entry, known []api.Resource) ([]byte, error) {
	skip := make(map[string]string, len(known))
	for _, r := range known {
		skip[r.FN] = r.SHA1
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	written := 0

	for _, e := range entries {
		if sum, ok := skip[e.Path]; ok {
			actual, err := fileSHA1(e.AbsPath)
			if err != nil {
				return nil, fmt.Errorf("fingerprinting %s: %w", e.Path, err)
			}
			if actual == sum {
				continue
			}
		}
		if err := addFile(zw, e); err != nil {
			return nil, fmt.Errorf("packing %s: %w", e.Path, err)
		}
		written++
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	if written == 0 {
		return nil, nil
	}
	return buf.Bytes(), nil
}

func addFile(zw *zip.Writer, e Entry) error {
	f, err := os.Open(e.AbsPath)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = e.Path
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}
