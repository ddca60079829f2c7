// Package session implements the page/session controller: each session
// owns one resident archive, one displayed page, and one translation
// batch, and moves through Empty → Loading → Viewing ⇄ Translating.
package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/oguzhansen/comiclate/internal/archive"
	"github.com/oguzhansen/comiclate/internal/imaging"
	"github.com/oguzhansen/comiclate/internal/providers"
)

// State is the session lifecycle state.
type State string

const (
	StateEmpty       State = "empty"
	StateLoading     State = "loading"
	StateViewing     State = "viewing"
	StateTranslating State = "translating"
)

// ErrBusy is returned when an operation arrives while another
// meaningful operation is still in flight.
var ErrBusy = errors.New("another operation is in progress")

// User-facing messages for the single error slot. The underlying
// causes go to the log, not the UI.
const (
	msgArchiveRead = "Could not read archive. Please ensure it is a valid .cbz or .zip file. For .cbr, try converting to .cbz."
	msgNoImages    = "No images found in this archive."
	msgPageLoad    = "Failed to load page image."
)

// Session holds the state for one open file. All mutations hold the
// session mutex; Translate releases it around the provider call and
// uses a generation counter to discard stale completions.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu          sync.Mutex
	state       State
	store       *archive.Store
	archiveName string
	pages       []archive.PageEntry
	pageIndex   int
	image       imaging.DataImage
	imageName   string
	language    providers.Language
	bubbles     []providers.Bubble
	errMsg      string
	generation  uint64
}

func newSession(id string) *Session {
	return &Session{
		ID:        id,
		CreatedAt: time.Now(),
		state:     StateEmpty,
		store:     archive.NewStore(),
		language:  providers.Turkish,
	}
}

// SelectFile resets the session and loads the given file. Archives
// (.cbz/.cbr/.zip) are decoded and the first page is displayed; any
// other name is treated as a single image. Failures fill the error
// slot and leave the session Empty.
func (s *Session) SelectFile(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy() {
		return ErrBusy
	}
	s.resetLocked()

	if !archive.IsArchiveName(name) {
		s.image = imaging.DataImage{MIME: archive.MimeForName(name), Data: data}
		s.imageName = name
		s.state = StateViewing
		return nil
	}

	s.state = StateLoading
	pages, err := s.store.Load(data)
	if err != nil {
		s.state = StateEmpty
		if errors.Is(err, archive.ErrEmptyArchive) {
			s.errMsg = msgNoImages
		} else {
			s.errMsg = msgArchiveRead
		}
		return err
	}

	s.pages = pages
	s.archiveName = name
	s.pageIndex = 0
	if err := s.displayPageLocked(0); err != nil {
		s.state = StateEmpty
		s.errMsg = msgPageLoad
		return err
	}
	s.state = StateViewing
	return nil
}

// GoToPage displays page i of the resident archive. Out-of-range
// indices are a no-op; a busy session rejects the navigation. The
// bubble batch is cleared because it belongs to the previous page.
func (s *Session) GoToPage(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy() {
		return ErrBusy
	}
	if i < 0 || i >= len(s.pages) {
		return nil
	}

	s.errMsg = ""
	s.bubbles = nil
	s.generation++
	s.pageIndex = i
	if err := s.displayPageLocked(i); err != nil {
		s.errMsg = msgPageLoad
		return err
	}
	return nil
}

// displayPageLocked extracts page i into the displayed image.
func (s *Session) displayPageLocked(i int) error {
	data, mime, err := s.store.Entry(s.pages[i].FileName)
	if err != nil {
		return fmt.Errorf("failed to display page %d: %w", i, err)
	}
	s.image = imaging.DataImage{MIME: mime, Data: data}
	s.imageName = s.pages[i].FileName
	return nil
}

// Translate sends the displayed page to the given translator. The
// bubble batch is replaced on success only; a failure fills the error
// slot with the normalized message and keeps the previous batch. The
// result is returned in both cases so the caller can record the call.
// Without a displayed image the call is a no-op.
func (s *Session) Translate(ctx context.Context, t providers.Translator, lang providers.Language) (*providers.TranslateResult, error) {
	s.mu.Lock()
	if s.busy() {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	if s.image.Empty() {
		s.mu.Unlock()
		return nil, nil
	}

	s.errMsg = ""
	s.language = lang
	s.state = StateTranslating
	gen := s.generation
	img := s.image
	s.mu.Unlock()

	result, err := t.Translate(ctx, &providers.TranslateRequest{
		Image:    img,
		Language: lang,
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		// The session moved on while the call was in flight.
		return result, err
	}
	s.state = StateViewing
	if err != nil {
		s.errMsg = providers.ErrTranslationFailed.Error()
		return result, fmt.Errorf("%w: %v", providers.ErrTranslationFailed, err)
	}
	s.bubbles = result.Bubbles
	return result, nil
}

// Reset clears the displayed image, the bubble batch, the error slot,
// and the resident archive.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.store.Clear()
	s.archiveName = ""
	s.pages = nil
	s.pageIndex = 0
	s.image = imaging.DataImage{}
	s.imageName = ""
	s.bubbles = nil
	s.errMsg = ""
	s.state = StateEmpty
	s.generation++
}

func (s *Session) busy() bool {
	return s.state == StateLoading || s.state == StateTranslating
}

// Image returns the displayed page, or false when nothing is shown.
func (s *Session) Image() (imaging.DataImage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.image.Empty() {
		return imaging.DataImage{}, false
	}
	return s.image, true
}

// Snapshot is a consistent read of the session for serialization.
type Snapshot struct {
	ID            string              `json:"id"`
	State         State               `json:"state"`
	ArchiveName   string              `json:"archive_name,omitempty"`
	ImageName     string              `json:"image_name,omitempty"`
	Pages         []archive.PageEntry `json:"pages,omitempty"`
	PageIndex     int                 `json:"page_index"`
	Language      providers.Language  `json:"language"`
	Bubbles       []providers.Bubble  `json:"bubbles"`
	Error         string              `json:"error,omitempty"`
	AvgConfidence int                 `json:"avg_confidence"`
}

// Snapshot returns the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:            s.ID,
		State:         s.state,
		ArchiveName:   s.archiveName,
		ImageName:     s.imageName,
		Pages:         s.pages,
		PageIndex:     s.pageIndex,
		Language:      s.language,
		Bubbles:       s.bubbles,
		Error:         s.errMsg,
		AvgConfidence: averageConfidence(s.bubbles),
	}
}

// averageConfidence is the rounded mean over the batch; absent
// confidences count as zero, an empty batch reports zero.
func averageConfidence(bubbles []providers.Bubble) int {
	if len(bubbles) == 0 {
		return 0
	}
	sum := 0
	for _, b := range bubbles {
		if b.Confidence != nil {
			sum += *b.Confidence
		}
	}
	return int(math.Round(float64(sum) / float64(len(bubbles))))
}
