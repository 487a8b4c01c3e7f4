package notify

import (
	"bytes"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/johnrirwin/gemlisting/internal/logging"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	Success(r, "Gem listed", "")
	Error(r, "Upload failed", "storage returned 403")
	Info(r, "Processing", "30%")

	all := r.All()
	if len(all) != 3 || all[1].Level != LevelError || all[1].Message != "storage returned 403" {
		t.Fatalf("all=%+v", all)
	}
	if got := r.WithLevel(LevelSuccess); len(got) != 1 || got[0].Title != "Gem listed" {
		t.Errorf("success=%+v", got)
	}

	r.Reset()
	if len(r.All()) != 0 {
		t.Error("Reset did not clear")
	}
}

func TestNilNotifierIsIgnored(t *testing.T) {
	Warning(nil, "ignored", "")
}

func TestWriterNotifier(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriterNotifier(&buf)
	Success(w, "Gem listed", "")
	Warning(w, "Extraction", "No data could be extracted")

	want := "[success] Gem listed\n[warning] Extraction: No data could be extracted\n"
	if buf.String() != want {
		t.Errorf("output=%q want=%q", buf.String(), want)
	}
}

func TestLogNotifier_MapsLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := logging.NewFromZap(zap.New(core), logging.LevelDebug)
	n := NewLogNotifier(logger)

	Multi{n, nil}.Notify(Notification{Level: LevelError, Title: "Submission failed", Message: "boom"})
	Warning(n, "Screening", "unavailable")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("entries=%d", len(entries))
	}
	if entries[0].Level != zapcore.ErrorLevel || entries[0].Message != "Submission failed" {
		t.Errorf("entry0=%+v", entries[0])
	}
	if entries[1].Level != zapcore.WarnLevel {
		t.Errorf("entry1 level=%v", entries[1].Level)
	}
	if entries[0].ContextMap()["message"] != "boom" {
		t.Errorf("fields=%v", entries[0].ContextMap())
	}
}
