package core

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	MaxDescriptionLen = 200
	MinUsernameLen    = 3
	MaxUsernameLen    = 150
	MinPasswordLen    = 6
	// MaxPasswordBytes is the longest input bcrypt accepts.
	MaxPasswordBytes = 72
)

// Field names as they appear in the HTML forms.
const (
	FieldTarget      = "valor"
	FieldProgress    = "atual"
	FieldAmount      = "quantia"
	FieldDescription = "descricao"
	FieldUsername    = "username"
	FieldEmail       = "email"
	FieldPassword    = "password1"
	FieldConfirm     = "password2"
)

const (
	msgAmount      = "Informe um valor numérico maior que zero."
	msgProgress    = "Informe um valor numérico maior ou igual a zero."
	msgDescription = "Informe uma descrição."
	msgTooLong     = "A descrição pode ter no máximo 200 caracteres."
)

// PlanInput is the raw plan form.
type PlanInput struct {
	Target      string
	Progress    string
	Description string
	// Version is the plan version the form was rendered from; zero skips
	// the concurrent edit check.
	Version int64
}

type PlanValues struct {
	Target      Money
	Progress    Money
	Description string
}

// Validate parses the form. Target must be positive; progress may be
// empty or zero.
func (in PlanInput) Validate() (PlanValues, error) {
	verr := NewValidationError()
	var out PlanValues

	target, err := ParseMoney(in.Target)
	if err != nil {
		verr.Add(FieldTarget, msgAmount)
	}
	out.Target = target

	if p := strings.TrimSpace(in.Progress); p != "" && !isZero(p) {
		progress, err := ParseMoney(p)
		if err != nil {
			verr.Add(FieldProgress, msgProgress)
		}
		out.Progress = progress
	}

	desc, err := validateDescription(in.Description)
	if err != nil {
		verr.Add(FieldDescription, descriptionMessage(err))
	}
	out.Description = desc

	if err := verr.Err(); err != nil {
		return PlanValues{}, err
	}
	return out, nil
}

// TransactionInput is the raw transaction form.
type TransactionInput struct {
	Amount      string
	Description string
	IsIncome    bool
}

type TransactionValues struct {
	Amount      Money
	Description string
	IsIncome    bool
}

func (in TransactionInput) Validate() (TransactionValues, error) {
	verr := NewValidationError()
	var out TransactionValues

	amount, err := ParseMoney(in.Amount)
	if err != nil {
		verr.Add(FieldAmount, msgAmount)
	}
	out.Amount = amount

	desc, err := validateDescription(in.Description)
	if err != nil {
		verr.Add(FieldDescription, descriptionMessage(err))
	}
	out.Description = desc
	out.IsIncome = in.IsIncome

	if err := verr.Err(); err != nil {
		return TransactionValues{}, err
	}
	return out, nil
}

// RegistrationInput is the sign-up form. Email is optional.
type RegistrationInput struct {
	Username string
	Email    string
	Password string
	Confirm  string
}

// Validate checks the shape of the form. Username uniqueness is checked by
// the authenticator against storage.
func (in RegistrationInput) Validate() error {
	verr := NewValidationError()

	name := strings.TrimSpace(in.Username)
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		verr.Add(FieldUsername, "Informe um nome de usuário.")
	case n < MinUsernameLen || n > MaxUsernameLen:
		verr.Add(FieldUsername, "O nome de usuário deve ter entre 3 e 150 caracteres.")
	case strings.ContainsAny(name, " \t\r\n"):
		verr.Add(FieldUsername, "O nome de usuário não pode conter espaços.")
	}

	if email := strings.TrimSpace(in.Email); email != "" && !strings.Contains(email, "@") {
		verr.Add(FieldEmail, "Informe um e-mail válido.")
	}

	switch {
	case utf8.RuneCountInString(in.Password) < MinPasswordLen:
		verr.Add(FieldPassword, "A senha deve ter pelo menos 6 caracteres.")
	case len(in.Password) > MaxPasswordBytes:
		verr.Add(FieldPassword, "A senha pode ter no máximo 72 bytes.")
	}
	if in.Password != in.Confirm {
		verr.Add(FieldConfirm, "As senhas não conferem.")
	}
	return verr.Err()
}

var errDescriptionTooLong = errors.New("description too long")

func validateDescription(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyDescription
	}
	if utf8.RuneCountInString(s) > MaxDescriptionLen {
		return "", errDescriptionTooLong
	}
	return s, nil
}

func descriptionMessage(err error) string {
	if errors.Is(err, errDescriptionTooLong) {
		return msgTooLong
	}
	return msgDescription
}

// isZero reports whether s is a well formed zero such as "0", "0,00" or
// ".0". Malformed text is not zero and goes on to fail parsing.
func isZero(s string) bool {
	s = strings.ReplaceAll(s, ",", ".")
	if strings.ContainsAny(s, "eE+-") {
		return false
	}
	d, err := decimal.NewFromString(s)
	return err == nil && d.IsZero()
}
