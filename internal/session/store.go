// Package session persists the auth session and local preferences in
// a bbolt file. There is no in-memory cache: every caller reads
// fresh from the store, so the only consistency rule is last write
// wins, and a read or write failure degrades to "session absent"
// rather than surfacing an error to a screen.
package session

import (
	"fmt"
	"log/slog"
	"time"

	"opora/internal/models"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

var (
	bucketSession = []byte("session")
	bucketPrefs   = []byte("prefs")
	bucketClient  = []byte("client")

	keyCurrent   = []byte("current")
	keyBubbles   = []byte("bubbles")
	keyInstallID = []byte("installId")
)

type Store struct {
	db  *bbolt.DB
	log *slog.Logger
}

func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketSession, bucketPrefs, bucketClient} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, log: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the stored session. Any storage failure is logged and
// reported as an absent session, which routes the user to login.
func (s *Store) Get() models.Session {
	var dbSession DBSession
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketSession).Get(keyCurrent)
		if data == nil {
			return models.ErrNotFound
		}
		return dbSession.UnmarshalBinary(data)
	})
	if err != nil {
		if err != models.ErrNotFound {
			s.log.Warn("session read failed, treating as absent", "error", err)
		}
		return models.Session{}
	}
	return models.Session{
		Token:   dbSession.Token,
		IsAdmin: dbSession.IsAdmin,
		UserID:  dbSession.UserID,
	}
}

func (s *Store) Set(session models.Session) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		dbSession := &DBSession{
			Token:   session.Token,
			IsAdmin: session.IsAdmin,
			UserID:  session.UserID,
		}
		data, err := dbSession.MarshalBinary()
		if err != nil {
			return err
		}
		return tx.Bucket(bucketSession).Put(keyCurrent, data)
	})
}

func (s *Store) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSession).Delete(keyCurrent)
	})
}

// Token implements api.TokenSource.
func (s *Store) Token() string {
	return s.Get().Token
}

// BubblePrefs returns the stored chat bubble colors, zero-valued when
// none were saved or the read fails.
func (s *Store) BubblePrefs() models.BubblePrefs {
	var dbPrefs DBBubblePrefs
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketPrefs).Get(keyBubbles)
		if data == nil {
			return models.ErrNotFound
		}
		return dbPrefs.UnmarshalBinary(data)
	})
	if err != nil {
		if err != models.ErrNotFound {
			s.log.Warn("bubble prefs read failed", "error", err)
		}
		return models.BubblePrefs{}
	}
	return models.BubblePrefs{
		UserBackground:  dbPrefs.UserBackground,
		UserText:        dbPrefs.UserText,
		AdminBackground: dbPrefs.AdminBackground,
		AdminText:       dbPrefs.AdminText,
	}
}

func (s *Store) SetBubblePrefs(prefs models.BubblePrefs) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		dbPrefs := &DBBubblePrefs{
			UserBackground:  prefs.UserBackground,
			UserText:        prefs.UserText,
			AdminBackground: prefs.AdminBackground,
			AdminText:       prefs.AdminText,
		}
		data, err := dbPrefs.MarshalBinary()
		if err != nil {
			return err
		}
		return tx.Bucket(bucketPrefs).Put(keyBubbles, data)
	})
}

// InstallID returns a stable per-install identifier, generating and
// persisting one on first use. It only ever appears in logs.
func (s *Store) InstallID() string {
	var id string
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketClient)
		if data := b.Get(keyInstallID); data != nil {
			id = string(data)
			return nil
		}
		id = uuid.NewString()
		return b.Put(keyInstallID, []byte(id))
	})
	if err != nil {
		s.log.Warn("install id unavailable", "error", err)
		return ""
	}
	return id
}
