package session

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oguzhansen/comiclate/internal/providers"
)

func buildZip(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, data := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := f.Write(data); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func intPtr(v int) *int { return &v }

// fakeTranslator returns canned results, optionally blocking until
// released so tests can interleave other operations.
type fakeTranslator struct {
	result  *providers.TranslateResult
	err     error
	release chan struct{}
}

func (f *fakeTranslator) Translate(ctx context.Context, req *providers.TranslateRequest) (*providers.TranslateResult, error) {
	if f.release != nil {
		<-f.release
	}
	return f.result, f.err
}
func (f *fakeTranslator) Name() string           { return "fake" }
func (f *fakeTranslator) RequestsPerMinute() int { return 60 }

func successResult(bubbles ...providers.Bubble) *providers.TranslateResult {
	return &providers.TranslateResult{Success: true, Bubbles: bubbles}
}

func TestSelectFile(t *testing.T) {
	t.Run("archive shows first page sorted", func(t *testing.T) {
		data := buildZip(t, map[string][]byte{
			"page10.jpg": []byte("ten"),
			"page2.jpg":  []byte("two"),
			"page1.jpg":  []byte("one"),
		})
		s := newSession("test")
		if err := s.SelectFile("book.cbz", data); err != nil {
			t.Fatalf("SelectFile() error = %v", err)
		}

		snap := s.Snapshot()
		if snap.State != StateViewing {
			t.Errorf("State = %s, want %s", snap.State, StateViewing)
		}
		if len(snap.Pages) != 3 {
			t.Fatalf("pages = %d, want 3", len(snap.Pages))
		}
		if snap.Pages[0].FileName != "page1.jpg" || snap.Pages[2].FileName != "page10.jpg" {
			t.Errorf("unexpected page order: %+v", snap.Pages)
		}
		if snap.ImageName != "page1.jpg" {
			t.Errorf("ImageName = %s, want page1.jpg", snap.ImageName)
		}
		img, ok := s.Image()
		if !ok {
			t.Fatal("expected displayed image")
		}
		if string(img.Data) != "one" {
			t.Errorf("image data = %q", img.Data)
		}
	})

	t.Run("single image displays directly", func(t *testing.T) {
		s := newSession("test")
		if err := s.SelectFile("cover.png", []byte("png-bytes")); err != nil {
			t.Fatalf("SelectFile() error = %v", err)
		}
		snap := s.Snapshot()
		if snap.State != StateViewing {
			t.Errorf("State = %s", snap.State)
		}
		if len(snap.Pages) != 0 {
			t.Errorf("expected no page list for single image")
		}
		img, _ := s.Image()
		if img.MIME != "image/png" {
			t.Errorf("MIME = %s, want image/png", img.MIME)
		}
	})

	t.Run("invalid archive sets error and stays empty", func(t *testing.T) {
		s := newSession("test")
		err := s.SelectFile("broken.cbz", []byte("not a zip"))
		if err == nil {
			t.Fatal("expected error")
		}
		snap := s.Snapshot()
		if snap.State != StateEmpty {
			t.Errorf("State = %s, want %s", snap.State, StateEmpty)
		}
		if snap.Error != msgArchiveRead {
			t.Errorf("Error = %q", snap.Error)
		}
	})

	t.Run("archive without images sets distinct error", func(t *testing.T) {
		data := buildZip(t, map[string][]byte{"readme.txt": []byte("hi")})
		s := newSession("test")
		if err := s.SelectFile("book.zip", data); err == nil {
			t.Fatal("expected error")
		}
		if snap := s.Snapshot(); snap.Error != msgNoImages {
			t.Errorf("Error = %q", snap.Error)
		}
	})

	t.Run("replaces prior file", func(t *testing.T) {
		s := newSession("test")
		first := buildZip(t, map[string][]byte{"a.jpg": []byte("a")})
		if err := s.SelectFile("first.cbz", first); err != nil {
			t.Fatal(err)
		}
		second := buildZip(t, map[string][]byte{"b.jpg": []byte("b"), "c.jpg": []byte("c")})
		if err := s.SelectFile("second.cbz", second); err != nil {
			t.Fatal(err)
		}
		snap := s.Snapshot()
		if snap.ArchiveName != "second.cbz" {
			t.Errorf("ArchiveName = %s", snap.ArchiveName)
		}
		if len(snap.Pages) != 2 {
			t.Errorf("pages = %d, want 2", len(snap.Pages))
		}
	})
}

func TestGoToPage(t *testing.T) {
	newLoaded := func(t *testing.T) *Session {
		t.Helper()
		data := buildZip(t, map[string][]byte{
			"p1.jpg": []byte("one"),
			"p2.jpg": []byte("two"),
			"p3.jpg": []byte("three"),
		})
		s := newSession("test")
		if err := s.SelectFile("book.cbz", data); err != nil {
			t.Fatal(err)
		}
		return s
	}

	t.Run("navigates and clears batch", func(t *testing.T) {
		s := newLoaded(t)
		s.bubbles = []providers.Bubble{{ID: "bubble-0-1"}}

		if err := s.GoToPage(1); err != nil {
			t.Fatalf("GoToPage() error = %v", err)
		}
		snap := s.Snapshot()
		if snap.PageIndex != 1 {
			t.Errorf("PageIndex = %d, want 1", snap.PageIndex)
		}
		if snap.ImageName != "p2.jpg" {
			t.Errorf("ImageName = %s", snap.ImageName)
		}
		if len(snap.Bubbles) != 0 {
			t.Error("expected batch cleared on page change")
		}
	})

	t.Run("out of range is a no-op", func(t *testing.T) {
		s := newLoaded(t)
		for _, i := range []int{-1, 3, 100} {
			if err := s.GoToPage(i); err != nil {
				t.Errorf("GoToPage(%d) error = %v", i, err)
			}
		}
		if snap := s.Snapshot(); snap.PageIndex != 0 {
			t.Errorf("PageIndex = %d, want 0", snap.PageIndex)
		}
	})

	t.Run("rejected while translating", func(t *testing.T) {
		s := newLoaded(t)
		ft := &fakeTranslator{result: successResult(), release: make(chan struct{})}

		done := make(chan struct{})
		go func() {
			defer close(done)
			s.Translate(context.Background(), ft, providers.English)
		}()

		// Wait for the session to enter Translating.
		for s.Snapshot().State != StateTranslating {
			time.Sleep(time.Millisecond)
		}
		if err := s.GoToPage(1); !errors.Is(err, ErrBusy) {
			t.Errorf("expected ErrBusy, got %v", err)
		}
		close(ft.release)
		<-done
	})
}

func TestTranslate(t *testing.T) {
	newWithImage := func(t *testing.T) *Session {
		t.Helper()
		s := newSession("test")
		if err := s.SelectFile("page.jpg", []byte("jpeg-bytes")); err != nil {
			t.Fatal(err)
		}
		return s
	}

	t.Run("replaces batch on success", func(t *testing.T) {
		s := newWithImage(t)
		ft := &fakeTranslator{result: successResult(
			providers.Bubble{ID: "bubble-0-1", TranslatedText: "Hi", Confidence: intPtr(90)},
			providers.Bubble{ID: "bubble-1-1", TranslatedText: "Bye", Confidence: intPtr(70)},
		)}

		result, err := s.Translate(context.Background(), ft, providers.Turkish)
		if err != nil {
			t.Fatalf("Translate() error = %v", err)
		}
		if result == nil || !result.Success {
			t.Fatal("expected successful result")
		}
		snap := s.Snapshot()
		if snap.State != StateViewing {
			t.Errorf("State = %s", snap.State)
		}
		if len(snap.Bubbles) != 2 {
			t.Errorf("bubbles = %d, want 2", len(snap.Bubbles))
		}
		if snap.Language != providers.Turkish {
			t.Errorf("Language = %s", snap.Language)
		}
		if snap.AvgConfidence != 80 {
			t.Errorf("AvgConfidence = %d, want 80", snap.AvgConfidence)
		}
	})

	t.Run("failure keeps previous batch", func(t *testing.T) {
		s := newWithImage(t)
		good := &fakeTranslator{result: successResult(providers.Bubble{ID: "bubble-0-1"})}
		if _, err := s.Translate(context.Background(), good, providers.English); err != nil {
			t.Fatal(err)
		}

		bad := &fakeTranslator{
			result: &providers.TranslateResult{ErrorType: "malformed_response"},
			err:    providers.ErrMalformedResponse,
		}
		_, err := s.Translate(context.Background(), bad, providers.English)
		if !errors.Is(err, providers.ErrTranslationFailed) {
			t.Errorf("expected ErrTranslationFailed, got %v", err)
		}

		snap := s.Snapshot()
		if snap.Error != providers.ErrTranslationFailed.Error() {
			t.Errorf("Error = %q", snap.Error)
		}
		if len(snap.Bubbles) != 1 {
			t.Errorf("expected previous batch kept, got %d bubbles", len(snap.Bubbles))
		}
		if snap.State != StateViewing {
			t.Errorf("State = %s", snap.State)
		}
	})

	t.Run("no-op without image", func(t *testing.T) {
		s := newSession("test")
		result, err := s.Translate(context.Background(), &fakeTranslator{result: successResult()}, providers.English)
		if err != nil {
			t.Errorf("Translate() error = %v", err)
		}
		if result != nil {
			t.Error("expected nil result for no-op")
		}
	})

	t.Run("new attempt clears prior error", func(t *testing.T) {
		s := newWithImage(t)
		bad := &fakeTranslator{err: errors.New("boom")}
		s.Translate(context.Background(), bad, providers.English)
		if s.Snapshot().Error == "" {
			t.Fatal("expected error slot filled")
		}

		good := &fakeTranslator{result: successResult(providers.Bubble{ID: "bubble-0-2"})}
		if _, err := s.Translate(context.Background(), good, providers.English); err != nil {
			t.Fatal(err)
		}
		if snap := s.Snapshot(); snap.Error != "" {
			t.Errorf("Error = %q, want cleared", snap.Error)
		}
	})

	t.Run("stale result discarded after reset", func(t *testing.T) {
		s := newWithImage(t)
		ft := &fakeTranslator{
			result:  successResult(providers.Bubble{ID: "bubble-0-3"}),
			release: make(chan struct{}),
		}

		done := make(chan struct{})
		go func() {
			defer close(done)
			s.Translate(context.Background(), ft, providers.English)
		}()
		for s.Snapshot().State != StateTranslating {
			time.Sleep(time.Millisecond)
		}

		s.Reset()
		close(ft.release)
		<-done

		snap := s.Snapshot()
		if snap.State != StateEmpty {
			t.Errorf("State = %s, want %s", snap.State, StateEmpty)
		}
		if len(snap.Bubbles) != 0 {
			t.Error("stale result must not install a batch")
		}
	})
}

func TestReset(t *testing.T) {
	data := buildZip(t, map[string][]byte{"p1.jpg": []byte("one")})
	s := newSession("test")
	if err := s.SelectFile("book.cbz", data); err != nil {
		t.Fatal(err)
	}
	s.Reset()

	snap := s.Snapshot()
	if snap.State != StateEmpty {
		t.Errorf("State = %s", snap.State)
	}
	if snap.ArchiveName != "" || len(snap.Pages) != 0 || snap.PageIndex != 0 {
		t.Errorf("expected cleared archive state: %+v", snap)
	}
	if _, ok := s.Image(); ok {
		t.Error("expected no displayed image")
	}
}

func TestAverageConfidence(t *testing.T) {
	cases := []struct {
		name    string
		bubbles []providers.Bubble
		want    int
	}{
		{"empty", nil, 0},
		{"single", []providers.Bubble{{Confidence: intPtr(73)}}, 73},
		{"rounded", []providers.Bubble{{Confidence: intPtr(80)}, {Confidence: intPtr(85)}}, 83},
		{"nil counts as zero", []providers.Bubble{{Confidence: intPtr(90)}, {}}, 45},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := averageConfidence(tc.bubbles); got != tc.want {
				t.Errorf("averageConfidence() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestManager(t *testing.T) {
	t.Run("create and get", func(t *testing.T) {
		m := NewManager()
		s := m.Create()
		if s.ID == "" {
			t.Fatal("expected session id")
		}
		got, err := m.Get(s.ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got != s {
			t.Error("Get() returned different session")
		}
		if m.Count() != 1 {
			t.Errorf("Count() = %d, want 1", m.Count())
		}
	})

	t.Run("close releases session", func(t *testing.T) {
		m := NewManager()
		s := m.Create()
		data := buildZip(t, map[string][]byte{"p1.jpg": []byte("one")})
		if err := s.SelectFile("book.cbz", data); err != nil {
			t.Fatal(err)
		}

		if err := m.Close(s.ID); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		if _, err := m.Get(s.ID); err == nil {
			t.Error("expected session to be gone")
		}
		if s.Snapshot().State != StateEmpty {
			t.Error("expected closed session reset")
		}
	})

	t.Run("close unknown", func(t *testing.T) {
		m := NewManager()
		if err := m.Close("nope"); err == nil {
			t.Error("expected error")
		}
	})
}
