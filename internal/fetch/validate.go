package fetch

import (
	"archive/tar"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
)

// ErrInvalidContent marks a payload that failed structural validation.
var ErrInvalidContent = errors.New("invalid artifact content")

var (
	zipMagic  = []byte("PK\x03\x04")
	gzipMagic = []byte{0x1f, 0x8b}
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidContent, fmt.Sprintf(format, args...))
}

// ValidateArchive accepts a zip-based archive (jar) that opens and whose
// entry list can be read.
func ValidateArchive(data []byte) error {
	if len(data) == 0 {
		return invalid("empty body")
	}
	if !bytes.HasPrefix(data, zipMagic) {
		return invalid("missing zip header")
	}
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return invalid("open zip: %v", err)
	}
	for _, f := range r.File {
		if f.Name == "" {
			return invalid("zip entry without a name")
		}
	}
	return nil
}

// ValidateTarball accepts a gzip-compressed tar stream holding at least one
// entry.
func ValidateTarball(data []byte) error {
	if len(data) == 0 {
		return invalid("empty body")
	}
	if !bytes.HasPrefix(data, gzipMagic) {
		return invalid("missing gzip header")
	}
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return invalid("open gzip: %v", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	entries := 0
	for {
		_, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return invalid("read tar: %v", err)
		}
		entries++
	}
	if entries == 0 {
		return invalid("tarball has no entries")
	}
	return nil
}

// Manifest is the subset of a POM the pipeline reads.
type Manifest struct {
	GroupID    string
	ArtifactID string
	Version    string
	Name       string
	URL        string
	SCMURL     string
	Licenses   []string
}

type pomDocument struct {
	XMLName    xml.Name `xml:"project"`
	GroupID    string   `xml:"groupId"`
	ArtifactID string   `xml:"artifactId"`
	Version    string   `xml:"version"`
	Name       string   `xml:"name"`
	URL        string   `xml:"url"`
	Parent     struct {
		GroupID string `xml:"groupId"`
		Version string `xml:"version"`
	} `xml:"parent"`
	SCM struct {
		URL string `xml:"url"`
	} `xml:"scm"`
	Licenses []struct {
		Name string `xml:"name"`
	} `xml:"licenses>license"`
}

// ParseManifest decodes a POM. Group and version fall back to the parent's
// when the project omits them.
func ParseManifest(data []byte) (Manifest, error) {
	var doc pomDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return Manifest{}, invalid("parse pom: %v", err)
	}
	m := Manifest{
		GroupID:    strings.TrimSpace(doc.GroupID),
		ArtifactID: strings.TrimSpace(doc.ArtifactID),
		Version:    strings.TrimSpace(doc.Version),
		Name:       strings.TrimSpace(doc.Name),
		URL:        strings.TrimSpace(doc.URL),
		SCMURL:     strings.TrimSpace(doc.SCM.URL),
	}
	if m.GroupID == "" {
		m.GroupID = strings.TrimSpace(doc.Parent.GroupID)
	}
	if m.Version == "" {
		m.Version = strings.TrimSpace(doc.Parent.Version)
	}
	for _, l := range doc.Licenses {
		if name := strings.TrimSpace(l.Name); name != "" {
			m.Licenses = append(m.Licenses, name)
		}
	}
	return m, nil
}

// ValidateManifest accepts a well-formed POM declaring an artifactId, which
// must equal name when name is not empty.
func ValidateManifest(data []byte, name string) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return invalid("empty body")
	}
	m, err := ParseManifest(data)
	if err != nil {
		return err
	}
	if m.ArtifactID == "" {
		return invalid("pom has no artifactId")
	}
	if name != "" && m.ArtifactID != name {
		return invalid("pom declares artifactId %q, want %q", m.ArtifactID, name)
	}
	return nil
}
