package llm

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/lingolens/internal/lang"
)

func TestService_FilterObjects(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		err      error
		labels   []string
		want     []string
		wantCall bool
	}{
		{name: "keeps listed objects", reply: "chair, mug", labels: []string{"chair", "mug", "furniture"}, want: []string{"chair", "mug"}, wantCall: true},
		{name: "sentinel is empty", reply: "NONE", labels: []string{"indoor"}, want: nil, wantCall: true},
		{name: "oracle error is empty", err: errors.New("quota"), labels: []string{"chair"}, want: nil, wantCall: true},
		{name: "guardrail is empty", reply: "Sorry, this violates my safety guidelines.", labels: []string{"chair"}, want: nil, wantCall: true},
		{name: "no labels skips the call", labels: nil, want: nil, wantCall: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := NewMockOracle(func(string) (string, error) { return tt.reply, tt.err })
			s := NewService(oracle, time.Second)

			got := s.FilterObjects(context.Background(), tt.labels)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FilterObjects() = %q, want %q", got, tt.want)
			}
			if called := oracle.Calls() > 0; called != tt.wantCall {
				t.Errorf("oracle called = %v, want %v", called, tt.wantCall)
			}
		})
	}
}

func TestService_Translate(t *testing.T) {
	oracle := NewMockOracle(func(prompt string) (string, error) {
		if !strings.Contains(prompt, "'chair'") || !strings.Contains(prompt, "Spanish") {
			t.Errorf("unexpected prompt %q", prompt)
		}
		return " Silla\n", nil
	})
	s := NewService(oracle, time.Second)

	got, err := s.Translate(context.Background(), "chair", lang.Spanish)
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if got != "silla" {
		t.Errorf("Translate() = %q, want silla", got)
	}
}

func TestService_TranslateFailures(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		err     error
		wantErr error
	}{
		{name: "empty reply", reply: "  ", wantErr: ErrNoResult},
		{name: "guardrail", reply: "guardrail triggered", wantErr: ErrBlocked},
		{name: "oracle error", err: ErrBlocked, wantErr: ErrBlocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewService(NewMockOracle(func(string) (string, error) { return tt.reply, tt.err }), time.Second)
			if _, err := s.Translate(context.Background(), "mug", lang.French); !errors.Is(err, tt.wantErr) {
				t.Errorf("Translate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestService_Timeout(t *testing.T) {
	oracle := NewMockOracle(func(string) (string, error) { return "tasse", nil })
	oracle.Hold()
	defer oracle.Release()

	s := NewService(oracle, 20*time.Millisecond)
	if _, err := s.Translate(context.Background(), "mug", lang.French); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Translate() error = %v, want DeadlineExceeded", err)
	}
}

func TestService_BilingualSentence(t *testing.T) {
	oracle := NewMockOracle(func(string) (string, error) {
		return "E: The cup is blue.\nT: La taza es azul.", nil
	})
	s := NewService(oracle, time.Second)

	got, ok := s.BilingualSentence(context.Background(), "cup", lang.Spanish)
	if !ok {
		t.Fatal("BilingualSentence() ok = false")
	}
	if got.English != "The cup is blue." || got.Translated != "La taza es azul." {
		t.Errorf("BilingualSentence() = %+v", got)
	}
}

func TestService_Unavailable(t *testing.T) {
	s := NewService(nil, 0)

	if s.Available() {
		t.Error("Available() = true without an oracle")
	}
	if _, err := s.Translate(context.Background(), "mug", lang.French); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Translate() error = %v, want ErrUnavailable", err)
	}
	if _, ok := s.BilingualSentence(context.Background(), "mug", lang.French); ok {
		t.Error("BilingualSentence() ok = true without an oracle")
	}
}

func TestNewGemini_EmptyKey(t *testing.T) {
	if _, err := NewGemini(context.Background(), "  ", ""); !errors.Is(err, ErrUnavailable) {
		t.Errorf("NewGemini() error = %v, want ErrUnavailable", err)
	}
}
