package validation

import (
	"strings"
	"testing"

	"medfeed/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePostContent(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		content    string
		attachment bool
		wantErr    bool
	}{
		{"Valid", "Great case #nephrology", false, false},
		{"Blank Without Attachment", "   ", false, true},
		{"Blank With Media", "", true, false},
		{"Exactly Max Length", strings.Repeat("é", MaxContentLen), false, false},
		{"Too Long", strings.Repeat("a", MaxContentLen+1), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePostContent(tt.content, tt.attachment)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateMedia(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		kind    models.MediaKind
		refs    []string
		wantErr bool
	}{
		{"None Without Refs", models.MediaKindNone, nil, false},
		{"None With Refs", models.MediaKindNone, []string{"blob://1"}, true},
		{"Image", models.MediaKindImage, []string{"blob://1", "blob://2"}, false},
		{"Image Without Refs", models.MediaKindImage, nil, true},
		{"Video", models.MediaKindVideo, []string{"blob://v"}, false},
		{"Video Two Refs", models.MediaKindVideo, []string{"a", "b"}, true},
		{"Blank Ref", models.MediaKindImage, []string{" "}, true},
		{"Unknown Kind", models.MediaKind("gif"), nil, true},
		{"Too Many", models.MediaKindImage, make([]string, MaxMediaRefs+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMedia(tt.kind, tt.refs)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateVisibility(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateVisibility(models.VisibilityFriends))
	assert.Error(t, ValidateVisibility("everyone"))
}

func TestValidateCommentBody(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateCommentBody("Agree, check the creatinine trend"))
	assert.Error(t, ValidateCommentBody(" \n "))
	assert.Error(t, ValidateCommentBody(strings.Repeat("x", MaxCommentLen+1)))
}

func TestNormalizePollOptions(t *testing.T) {
	t.Parallel()

	opts, err := NormalizePollOptions([]string{" Dialysis ", "Diuretics"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Dialysis", "Diuretics"}, opts)

	bad := map[string][]string{
		"single":    {"only"},
		"blank":     {"a", "  "},
		"duplicate": {"a", " a"},
		"too many":  make([]string, MaxPollOptions+1),
	}
	for name, in := range bad {
		t.Run(name, func(t *testing.T) {
			_, err := NormalizePollOptions(in)
			assert.Error(t, err)
		})
	}
}
