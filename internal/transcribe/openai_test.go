package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTranscribe(t *testing.T) {
	var gotModel, gotLanguage, gotAuth string
	var gotFile []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
		}
		gotModel = r.FormValue("model")
		gotLanguage = r.FormValue("language")

		f, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
		} else {
			buf := make([]byte, 64)
			n, _ := f.Read(buf)
			gotFile = buf[:n]
			f.Close()
		}

		json.NewEncoder(w).Encode(map[string]string{"text": "Vi får nu höra mer om utvecklingen"})
	}))
	defer srv.Close()

	g := newWithURL("sk-test", "whisper-1", "sv", srv.Client(), srv.URL)

	text, err := g.Transcribe(context.Background(), []byte("fake-wav"))
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}

	if text != "Vi får nu höra mer om utvecklingen" {
		t.Errorf("text = %q", text)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotModel != "whisper-1" {
		t.Errorf("model = %q", gotModel)
	}
	if gotLanguage != "sv" {
		t.Errorf("language = %q", gotLanguage)
	}
	if string(gotFile) != "fake-wav" {
		t.Errorf("file = %q", gotFile)
	}
}

func TestTranscribeEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"text": ""})
	}))
	defer srv.Close()

	g := newWithURL("sk-test", "whisper-1", "sv", srv.Client(), srv.URL)

	text, err := g.Transcribe(context.Background(), []byte("silence"))
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if text != "" {
		t.Errorf("text = %q, want empty for silence", text)
	}
}

func TestTranscribeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	g := newWithURL("sk-test", "whisper-1", "sv", srv.Client(), srv.URL)

	_, err := g.Transcribe(context.Background(), []byte("fake-wav"))
	if !errors.Is(err, ErrTranscription) {
		t.Errorf("Transcribe() error = %v, want ErrTranscription", err)
	}
}

func TestTranscribeCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	g := newWithURL("sk-test", "whisper-1", "sv", srv.Client(), srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := g.Transcribe(ctx, []byte("fake-wav")); !errors.Is(err, ErrTranscription) {
		t.Errorf("Transcribe() error = %v, want ErrTranscription on cancellation", err)
	}
}
