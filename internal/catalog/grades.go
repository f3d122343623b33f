package catalog

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// UnknownGradeTitle is shown for grades outside the known set.
const UnknownGradeTitle = "صف غير معروف"

var gradeTitles = map[string]string{
	"1": "الصف الأول الثانوي",
	"2": "الصف الثاني الثانوي",
	"3": "الصف الثالث الثانوي",
}

// GradeTitle returns the display title for a grade.
func GradeTitle(grade string) string {
	if t, ok := gradeTitles[grade]; ok {
		return t
	}
	return UnknownGradeTitle
}

// Digest returns a hex BLAKE2b-256 digest of a raw document, used as its ETag.
func Digest(raw []byte) string {
	sum := blake2b.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
