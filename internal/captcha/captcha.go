// Package captcha generates arithmetic challenges for the report flow.
package captcha

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// Challenge is one arithmetic question with its precomputed answer.
type Challenge struct {
	Question string
	Answer   string
}

// New generates a challenge with two operands 1..9 and a random operator.
// Subtraction operands are ordered so the answer is never negative.
func New() Challenge {
	a, b := rand.Intn(9)+1, rand.Intn(9)+1

	switch rand.Intn(3) {
	case 0:
		return Challenge{
			Question: fmt.Sprintf("%d + %d = ?", a, b),
			Answer:   strconv.Itoa(a + b),
		}
	case 1:
		if a < b {
			a, b = b, a
		}
		return Challenge{
			Question: fmt.Sprintf("%d − %d = ?", a, b),
			Answer:   strconv.Itoa(a - b),
		}
	default:
		return Challenge{
			Question: fmt.Sprintf("%d × %d = ?", a, b),
			Answer:   strconv.Itoa(a * b),
		}
	}
}

// Check compares the user's input against the precomputed answer.
// Only surrounding whitespace is forgiven.
func (c Challenge) Check(input string) bool {
	return strings.TrimSpace(input) == c.Answer
}
