package tool_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/artificer-dev/artificer/internal/domain"
	"github.com/artificer-dev/artificer/internal/domain/tool"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase passthrough", "disk_usage", "disk_usage"},
		{"uppercase folded", "Disk_Usage", "disk_usage"},
		{"spaces and punctuation", "Word Counter!", "word_counter_"},
		{"hyphens", "csv-to-json", "csv_to_json"},
		{"surrounding whitespace", "  weather  ", "weather"},
		{"digits kept", "md5sum2", "md5sum2"},
		{"unicode replaced", "café", "caf_"},
		{"empty", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tool.SanitizeName(tc.in); got != tc.want {
				t.Errorf("SanitizeName(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestLanguageValid(t *testing.T) {
	for _, l := range []tool.Language{tool.LanguageNative, tool.LanguageScript, tool.LanguageShell} {
		if !l.Valid() {
			t.Errorf("%q should be valid", l)
		}
	}
	for _, l := range []tool.Language{"", "python", "cobol"} {
		if tool.Language(l).Valid() {
			t.Errorf("%q should be invalid", l)
		}
	}
}

func TestCreateRequestValidate(t *testing.T) {
	valid := func() tool.CreateRequest {
		return tool.CreateRequest{
			Name:     "Disk Usage",
			Code:     "df -h",
			Language: tool.LanguageShell,
		}
	}

	t.Run("normalizes name", func(t *testing.T) {
		req := valid()
		if err := req.Validate(); err != nil {
			t.Fatalf("Validate: %v", err)
		}
		if req.Name != "disk_usage" {
			t.Errorf("name = %q, want disk_usage", req.Name)
		}
	})

	t.Run("rejects empty name", func(t *testing.T) {
		req := valid()
		req.Name = "  !! "
		if err := req.Validate(); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("err = %v, want ErrValidation", err)
		}
	})

	t.Run("rejects empty code", func(t *testing.T) {
		req := valid()
		req.Code = ""
		if err := req.Validate(); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("err = %v, want ErrValidation", err)
		}
	})

	t.Run("rejects unknown language", func(t *testing.T) {
		req := valid()
		req.Language = "python"
		if err := req.Validate(); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("err = %v, want ErrValidation", err)
		}
	})
}

func TestMetadataNeverCarriesCode(t *testing.T) {
	tl := tool.Tool{
		ID:       "id-1",
		Name:     "secret_tool",
		Code:     "rm -rf /tmp/scratch",
		Language: tool.LanguageShell,
	}

	data, err := json.Marshal(tl.Metadata())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "rm -rf") {
		t.Errorf("metadata leaked code: %s", data)
	}

	// The full entity must not leak code over JSON either.
	data, err = json.Marshal(tl)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "rm -rf") {
		t.Errorf("tool JSON leaked code: %s", data)
	}
}
