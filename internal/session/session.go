// Package session owns the per-chat conversation state. At most one session
// exists per chat; a session lives between the photo reply that starts it and
// either a generated form URL, an explicit cancel, or idle expiry.
package session

import (
	"errors"
	"os"
	"strconv"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

type DocumentType string

const (
	DocSPT   DocumentType = "spt"      // single officer, with letter-date step
	DocSPTPP DocumentType = "sptpp"    // single officer, no letter-date step
	DocPokja DocumentType = "sptpokja" // multi team
)

// Collected-answer field names.
const (
	FieldLetterDate = "tanggal_surat"
	FieldEmail      = "email_penerima"
	FieldOfficer    = "pejabat_pengadaan"
)

var ErrActive = errors.New("a session is already active for this chat")

type Session struct {
	ChatID    int64
	Type      DocumentType
	Step      int    // ordinal, starts at 1
	ImagePath string // temp file, owned by the session
	Values    map[string]string
	TeamCount int
	TeamNames []string
	CreatedAt time.Time
}

func New(chatID int64, typ DocumentType, imagePath string) *Session {
	return &Session{
		ChatID:    chatID,
		Type:      typ,
		Step:      1,
		ImagePath: imagePath,
		Values:    make(map[string]string),
		CreatedAt: time.Now(),
	}
}

// ReleaseImage removes the downloaded photo. Idempotent; called on every exit
// path.
func (s *Session) ReleaseImage() {
	if s.ImagePath == "" {
		return
	}
	_ = os.Remove(s.ImagePath)
	s.ImagePath = ""
}

// Store keeps sessions in a TTL cache so abandoned conversations expire
// instead of leaking, and hands out a per-chat mutex so steps for one chat
// never interleave.
type Store struct {
	c     *cache.Cache
	locks sync.Map // chatID -> *sync.Mutex
	log   *zap.Logger
}

func NewStore(idleTTL time.Duration, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	c := cache.New(idleTTL, 5*time.Minute)
	s := &Store{c: c, log: log}
	c.OnEvicted(func(key string, v interface{}) {
		sess, ok := v.(*Session)
		if !ok {
			return
		}
		sess.ReleaseImage()
		s.log.Info("session ended",
			zap.String("chat", key),
			zap.String("type", string(sess.Type)))
	})
	return s
}

// Lock returns the mutex serializing all handling for one chat.
func (s *Store) Lock(chatID int64) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(chatID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Start registers a new session. ErrActive when one already exists; the
// caller decides how to surface that (we reject, never overwrite).
func (s *Store) Start(sess *Session) error {
	if err := s.c.Add(key(sess.ChatID), sess, cache.DefaultExpiration); err != nil {
		return ErrActive
	}
	return nil
}

func (s *Store) Get(chatID int64) (*Session, bool) {
	v, ok := s.c.Get(key(chatID))
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

// Touch resets the idle clock after each answered step.
func (s *Store) Touch(sess *Session) {
	s.c.Set(key(sess.ChatID), sess, cache.DefaultExpiration)
}

// End deletes the session; eviction releases the temp image.
func (s *Store) End(chatID int64) {
	s.c.Delete(key(chatID))
}

func key(chatID int64) string { return strconv.FormatInt(chatID, 10) }
