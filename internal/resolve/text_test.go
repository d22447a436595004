package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigitsOnly(t *testing.T) {
	assert.Equal(t, "123456789", digitsOnly("123-45-6789"))
	assert.Equal(t, "123456789", digitsOnly("123 45 6789"))
	assert.Equal(t, "", digitsOnly("no digits here"))
	assert.Equal(t, "20240102", digitsOnly("2024-01-02"))
}

func TestNameCandidates_WindowsWithinAlphaRuns(t *testing.T) {
	got := nameCandidates("Call 555 John Smith")

	assert.Contains(t, got, "JOHN SMITH")
	// "555" breaks the run, so no window spans it.
	assert.NotContains(t, got, "CALL JOHN")
	assert.NotContains(t, got, "CALL 555 JOHN")
}

func TestNameCandidates_AllWindowSizes(t *testing.T) {
	got := nameCandidates("Maria Del Carmen Lopez")

	assert.Contains(t, got, "MARIA DEL")
	assert.Contains(t, got, "MARIA DEL CARMEN")
	assert.Contains(t, got, "MARIA DEL CARMEN LOPEZ")
	assert.Contains(t, got, "CARMEN LOPEZ")
}

func TestNameCandidates_LinesScannedIndependently(t *testing.T) {
	got := nameCandidates("John\nSmith")

	// One token per line: no window reaches the minimum size.
	assert.Empty(t, got)
}

func TestNameCandidates_Dedup(t *testing.T) {
	got := nameCandidates("John Smith\nJohn Smith")

	count := 0
	for _, c := range got {
		if c == "JOHN SMITH" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestNameCandidates_EmptyAndGarbage(t *testing.T) {
	assert.Empty(t, nameCandidates(""))
	assert.Empty(t, nameCandidates("\n\n\n"))
	assert.Empty(t, nameCandidates("#### 1234 %%%%"))
}
