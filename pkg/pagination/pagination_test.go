package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, DefaultLimit, NormalizeLimit(-3))
	assert.Equal(t, 10, NormalizeLimit(10))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+1))
}

func TestCursorRoundTrip(t *testing.T) {
	c := Cursor{CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC), ID: uuid.New()}
	token := c.Encode()
	assert.NotContains(t, token, "=")

	parsed, err := ParseCursor(" " + token + " ")
	require.NoError(t, err)
	assert.True(t, c.CreatedAt.Equal(parsed.CreatedAt))
	assert.Equal(t, c.ID, parsed.ID)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	parsed, err := ParseCursor("")
	require.NoError(t, err)
	assert.Nil(t, parsed)

	for _, token := range []string{"not base64!", base64.RawURLEncoding.EncodeToString([]byte("short"))} {
		_, err := ParseCursor(token)
		assert.Error(t, err, token)
	}
}

func TestPage(t *testing.T) {
	rows := []int{5, 4, 3}
	cursorOf := func(v int) Cursor { return Cursor{CreatedAt: time.Unix(int64(v), 0)} }

	page, next := Page(rows, 2, cursorOf)
	assert.Equal(t, []int{5, 4}, page)
	require.NotNil(t, next)
	assert.Equal(t, int64(4), next.CreatedAt.Unix())

	page, next = Page(rows[:2], 2, cursorOf)
	assert.Len(t, page, 2)
	assert.Nil(t, next)
}
