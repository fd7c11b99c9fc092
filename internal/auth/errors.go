package auth

import "errors"

// Kind identifies one member of the closed authentication error taxonomy.
// Every provider or store failure surfaced by the gate is one of these;
// anything unmapped becomes KindUnknown with the original message.
type Kind string

const (
	KindUserNotFound      Kind = "UserNotFound"
	KindWrongPassword     Kind = "WrongPassword"
	KindInvalidCredential Kind = "InvalidCredential"
	KindEmailInUse        Kind = "EmailInUse"
	KindWeakPassword      Kind = "WeakPassword"
	KindInvalidEmail      Kind = "InvalidEmail"
	KindRecordMissing     Kind = "RecordMissing"
	KindAccountInactive   Kind = "AccountInactive"
	KindPopupCancelled    Kind = "PopupCancelled"
	KindPopupBlocked      Kind = "PopupBlocked"
	KindUnknown           Kind = "Unknown"
)

// Action is the alternate action offered to the user alongside an error
type Action int

const (
	ActionNone Action = iota
	ActionSignUp
	ActionContactSupport
	ActionRetry
)

// Error is a classified authentication failure with a user-facing message
type Error struct {
	Kind    Kind
	Message string
	Action  Action
}

// Error implements the error interface
func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// IsKind reports whether err is a taxonomy error of the given kind
func IsKind(err error, kind Kind) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

// newRecordMissing builds the "credentials valid but no profile record"
// error. The offered action depends on the flow: the email/password flow
// points at support, the federated login flow points at sign-up.
func newRecordMissing(federated bool) *Error {
	if federated {
		return &Error{
			Kind:    KindRecordMissing,
			Message: "No profile found for this account. Please sign up first.",
			Action:  ActionSignUp,
		}
	}
	return &Error{
		Kind:    KindRecordMissing,
		Message: "Your account exists but its profile record is missing. Please contact support.",
		Action:  ActionContactSupport,
	}
}

func newAccountInactive() *Error {
	return &Error{
		Kind:    KindAccountInactive,
		Message: "This account has been deactivated. Please contact support.",
		Action:  ActionContactSupport,
	}
}

// classify converts any failure crossing the gate boundary into a taxonomy
// error. Taxonomy errors pass through; provider errors are mapped by code;
// everything else is KindUnknown carrying the original message verbatim.
func classify(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		switch pe.Code {
		case CodeUserNotFound:
			return &Error{Kind: KindUserNotFound, Message: "No account found with this email.", Action: ActionSignUp}
		case CodeInvalidCredential:
			return &Error{Kind: KindInvalidCredential, Message: "Invalid email or password.", Action: ActionSignUp}
		case CodeWrongPassword:
			return &Error{Kind: KindWrongPassword, Message: "Incorrect password. Please try again."}
		case CodeEmailInUse:
			return &Error{Kind: KindEmailInUse, Message: "This email is already registered."}
		case CodeWeakPassword:
			return &Error{Kind: KindWeakPassword, Message: "Password should be at least 6 characters."}
		case CodeInvalidEmail:
			return &Error{Kind: KindInvalidEmail, Message: "Please enter a valid email address."}
		case CodePopupCancelled:
			return &Error{Kind: KindPopupCancelled, Message: "Sign-in was cancelled.", Action: ActionRetry}
		case CodePopupBlocked:
			return &Error{Kind: KindPopupBlocked, Message: "The sign-in window could not be opened.", Action: ActionRetry}
		}
	}

	return &Error{Kind: KindUnknown, Message: err.Error()}
}
