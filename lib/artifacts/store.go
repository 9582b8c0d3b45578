package artifacts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	devenv "lunchbot/dev/env"
	"lunchbot/lib/telemetry"
)

var tracer = telemetry.Tracer("lunchbot.lib.artifacts")

var (
	ErrArtifactExists = errors.New("artifact already exists")
	ErrInvalidHash    = errors.New("invalid artifact hash")
)

// Kind is the type of artifact stored for a dish, its value is the file
// extension.
type Kind string

const (
	KindImage       Kind = ".png"
	KindDescription Kind = ".txt"
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindDescription:
		return "description"
	}
	return string(k)
}

// FileName is the name an artifact has both on disk and remotely.
func FileName(hash string, kind Kind) string {
	return hash + string(kind)
}

// Entry describes the artifacts stored for a hash. Existence is decided by
// path alone, the content is never checked.
type Entry struct {
	Hash            string
	ImagePath       string
	DescriptionPath string
	HasImage        bool
	HasDescription  bool
}

func (e Entry) Has(kind Kind) bool {
	switch kind {
	case KindImage:
		return e.HasImage
	case KindDescription:
		return e.HasDescription
	}
	return false
}

var validHash = regexp.MustCompile(`^[0-9a-f]+$`)

// DiskStore keeps every artifact as {dir}/{hash}{ext}. Artifacts are only
// ever created, removing one is left to the operator.
type DiskStore struct {
	dir string
}

// NewDiskStore creates dir if needed, <dev_state> paths are resolved.
func NewDiskStore(dir string) (DiskStore, error) {
	dir, err := devenv.ResolvePath(dir)
	if err != nil {
		return DiskStore{}, err
	}
	err = os.MkdirAll(dir, 0777)
	if err != nil {
		return DiskStore{}, err
	}
	return DiskStore{dir: dir}, nil
}

func (s DiskStore) Dir() string {
	return s.dir
}

func (s DiskStore) Path(hash string, kind Kind) string {
	return filepath.Join(s.dir, FileName(hash, kind))
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (s DiskStore) Lookup(hash string) Entry {
	entry := Entry{
		Hash:            hash,
		ImagePath:       s.Path(hash, KindImage),
		DescriptionPath: s.Path(hash, KindDescription),
	}
	entry.HasImage = exists(entry.ImagePath)
	entry.HasDescription = exists(entry.DescriptionPath)
	return entry
}

func (s DiskStore) Read(hash string, kind Kind) ([]byte, error) {
	if !validHash.MatchString(hash) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHash, hash)
	}
	return os.ReadFile(s.Path(hash, kind))
}

// Store writes data to a fresh temp file next to the artifact and links it
// into place. A present artifact is never overwritten: ErrArtifactExists is
// returned together with the existing entry instead.
func (s DiskStore) Store(hash string, kind Kind, data []byte) (Entry, error) {
	if !validHash.MatchString(hash) {
		return Entry{}, fmt.Errorf("%w: %q", ErrInvalidHash, hash)
	}

	tmp, err := os.CreateTemp(s.dir, fmt.Sprintf(".%s-*.tmp", FileName(hash, kind)))
	if err != nil {
		return Entry{}, err
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	closeErr := tmp.Close()
	if err != nil {
		return Entry{}, err
	}
	if closeErr != nil {
		return Entry{}, closeErr
	}

	err = os.Link(tmp.Name(), s.Path(hash, kind))
	if os.IsExist(err) {
		return s.Lookup(hash), fmt.Errorf("%w: %s", ErrArtifactExists, FileName(hash, kind))
	}
	if err != nil {
		return Entry{}, err
	}
	return s.Lookup(hash), nil
}
