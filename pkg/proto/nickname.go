package proto

// MaxNicknameLen is the maximum nickname length in bytes.
const MaxNicknameLen = 20

// IsValidNickname reports whether a nickname is acceptable: 1-20 bytes, no
// delimiter, terminator, carriage return or control characters (space and
// tab allowed), and at least one non-whitespace character.
func IsValidNickname(nickname string) bool {
	if nickname == "" || len(nickname) > MaxNicknameLen {
		return false
	}

	hasNonWhitespace := false
	for i := 0; i < len(nickname); i++ {
		c := nickname[i]
		if c == Delimiter || c == Terminator || c == '\r' {
			return false
		}
		if (c < 32 && c != ' ' && c != '\t') || c == 127 {
			return false
		}
		if c != ' ' && c != '\t' {
			hasNonWhitespace = true
		}
	}

	return hasNonWhitespace
}
