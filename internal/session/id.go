package session

import (
	"fmt"
	"regexp"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// IDLength is the length of ids produced by GenerateID.
const IDLength = 21

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{21}$`)

// GenerateID generates a URL-safe random session id.
func GenerateID() (string, error) {

	id, err := gonanoid.New(IDLength)
	if err != nil {
		return "", fmt.Errorf("session: failed to generate id: %w", err)
	}

	return id, nil

}

// ValidID reports whether id has the shape produced by GenerateID.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}
