package users

import (
	"sync"

	"github.com/dlclark/regexp2"
	"github.com/xeipuuv/gojsonschema"

	"github.com/jeremywhuff/rpq"
)

// SafePasswordFormat is a JSON schema format requiring at least 8 characters with a lowercase letter, an
// uppercase letter, a digit, and a special character.
const SafePasswordFormat = "safe-password"

var safePassword = regexp2.MustCompile(`^(?=.*[a-z])(?=.*[A-Z])(?=.*\d)(?=.*[!@#$%^&*()\-_=+{};:,<.>]).{8,}$`, regexp2.None)

type safePasswordChecker struct{}

// IsFormat accepts non-string input; the type keyword reports those.
func (safePasswordChecker) IsFormat(input any) bool {
	s, ok := input.(string)
	if !ok {
		return true
	}
	matched, err := safePassword.MatchString(s)
	return err == nil && matched
}

var registerFormats sync.Once

func mustSchema(src string) *rpq.Schema {
	registerFormats.Do(func() {
		gojsonschema.FormatCheckers.Add(SafePasswordFormat, safePasswordChecker{})
	})
	return rpq.MustSchema(src)
}

var createUserSchema = mustSchema(`{
  "type": "object",
  "properties": {
    "email": {"type": "string", "format": "email"},
    "name": {"type": "string", "minLength": 2},
    "password": {
      "type": "string",
      "minLength": 8,
      "format": "safe-password",
      "errorMessage": {
        "type": "Password must be a valid string.",
        "minLength": "Password must be at least 8 characters long.",
        "format": "Password must contain at least one uppercase letter, one lowercase letter, one digit, and one special character."
      }
    }
  },
  "required": ["email", "name", "password"],
  "additionalProperties": false
}`)

var updateUserSchema = mustSchema(`{
  "type": "object",
  "properties": {
    "email": {"type": "string", "format": "email"},
    "name": {"type": "string", "minLength": 2},
    "password": {
      "type": "string",
      "minLength": 8,
      "format": "safe-password",
      "errorMessage": {
        "type": "Password must be a valid string.",
        "minLength": "Password must be at least 8 characters long.",
        "format": "Password must contain at least one uppercase letter, one lowercase letter, one digit, and one special character."
      }
    },
    "isVerified": {"type": "boolean"}
  },
  "additionalProperties": false
}`)
