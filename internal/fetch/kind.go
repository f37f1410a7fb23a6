package fetch

// Kind is the type of artifact fetched for a node.
type Kind int

const (
	// KindManifest is a Maven POM.
	KindManifest Kind = iota
	// KindPackage is a Maven jar.
	KindPackage
	// KindTarball is an npm package tarball.
	KindTarball
)

// Extension returns the file extension used for cache files of k.
func (k Kind) Extension() string {
	switch k {
	case KindManifest:
		return "pom"
	case KindPackage:
		return "jar"
	case KindTarball:
		return "tgz"
	}
	return "bin"
}

// Dir returns the artifact subdirectory of the cache root holding k.
func (k Kind) Dir() string {
	if k == KindManifest {
		return "poms"
	}
	return "packages"
}

func (k Kind) String() string {
	switch k {
	case KindManifest:
		return "manifest"
	case KindPackage:
		return "package"
	case KindTarball:
		return "tarball"
	}
	return "unknown"
}

// Validate checks data against the structure expected for k. name is the
// artifact name a manifest must declare; an empty name skips that check.
func (k Kind) Validate(data []byte, name string) error {
	switch k {
	case KindManifest:
		return ValidateManifest(data, name)
	case KindPackage:
		return ValidateArchive(data)
	case KindTarball:
		return ValidateTarball(data)
	}
	return ErrInvalidContent
}
