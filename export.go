package lessonplanner

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/klauspost/compress/zip"
)

// packageEpoch is stamped on every zip entry so identical input gives identical bytes
var packageEpoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// sanitizeFilename drops path separators and control characters, falling back when nothing is left
func sanitizeFilename(name, fallback string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' || r == '"' || r == '<' || r == '>' || r == '|':
			return '_'
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, name)
	cleaned = strings.Trim(strings.TrimSpace(cleaned), ".")
	if cleaned == "" {
		return fallback
	}
	return cleaned
}

// zipPackage writes named parts into a deflated zip archive
type zipPackage struct {
	buf bytes.Buffer
	zw  *zip.Writer
	err error
}

func newZipPackage() *zipPackage {
	p := &zipPackage{}
	p.zw = zip.NewWriter(&p.buf)
	return p
}

func (p *zipPackage) add(name string, data []byte) {
	if p.err != nil {
		return
	}
	w, err := p.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: packageEpoch,
	})
	if err != nil {
		p.err = fmt.Errorf("failed to create %s: %w", name, err)
		return
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		p.err = fmt.Errorf("failed to write %s: %w", name, err)
	}
}

func (p *zipPackage) addString(name, data string) {
	p.add(name, []byte(data))
}

// bytes finalizes the archive
func (p *zipPackage) bytes() ([]byte, error) {
	if p.err != nil {
		return nil, p.err
	}
	if err := p.zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close archive: %w", err)
	}
	return p.buf.Bytes(), nil
}
