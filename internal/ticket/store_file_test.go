package ticket

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type FileStoreSuite struct {
	suite.Suite
	ctx   context.Context
	dir   string
	store *FileStore
}

func (s *FileStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.dir = s.T().TempDir()

	store, err := NewFileStore(s.dir)
	s.Require().NoError(err)
	s.store = store
}

func TestFileStoreSuite(t *testing.T) {
	suite.Run(t, new(FileStoreSuite))
}

func (s *FileStoreSuite) entry(fp Fingerprint) CachedTicket {
	now := time.Now().UTC().Truncate(time.Second)
	return CachedTicket{
		Fingerprint: fp,
		Token:       "tok",
		Sign:        "sig",
		IssuedAt:    now,
		ExpiresAt:   now.Add(5 * time.Hour),
	}
}

func (s *FileStoreSuite) TestRoundTrip() {
	fp := Fingerprint("abc123")
	want := s.entry(fp)
	s.Require().NoError(s.store.Put(s.ctx, fp, want))

	got, err := s.store.Get(s.ctx, fp)
	s.Require().NoError(err)
	s.Equal(want, got)
}

func (s *FileStoreSuite) TestMissReadsAsNotFound() {
	s.Run("missing entry", func() {
		_, err := s.store.Get(s.ctx, Fingerprint("unknown"))
		s.Require().ErrorIs(err, ErrNotFound)
	})

	s.Run("corrupt entry", func() {
		fp := Fingerprint("corrupt")
		path := filepath.Join(s.dir, string(fp)+".json")
		s.Require().NoError(os.WriteFile(path, []byte("{not json"), 0o600))

		_, err := s.store.Get(s.ctx, fp)
		s.Require().ErrorIs(err, ErrNotFound)
	})

	s.Run("entry without payload", func() {
		fp := Fingerprint("empty")
		s.Require().NoError(s.store.Put(s.ctx, fp, CachedTicket{Fingerprint: fp}))

		_, err := s.store.Get(s.ctx, fp)
		s.Require().ErrorIs(err, ErrNotFound)
	})
}

func (s *FileStoreSuite) TestOverwrite() {
	fp := Fingerprint("refresh")
	first := s.entry(fp)
	s.Require().NoError(s.store.Put(s.ctx, fp, first))

	second := first
	second.Token = "tok-2"
	second.ExpiresAt = first.ExpiresAt.Add(time.Hour)
	s.Require().NoError(s.store.Put(s.ctx, fp, second))

	got, err := s.store.Get(s.ctx, fp)
	s.Require().NoError(err)
	s.Equal("tok-2", got.Token)

	// One file per fingerprint, no temp leftovers.
	entries, err := os.ReadDir(s.dir)
	s.Require().NoError(err)
	s.Len(entries, 1)
}

func (s *FileStoreSuite) TestRequiresDirectory() {
	_, err := NewFileStore("")
	s.Require().Error(err)
}
