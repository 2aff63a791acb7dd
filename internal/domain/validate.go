package domain

import "errors"

var (
	ErrMissingUsername  = errors.New("missing username")
	ErrMissingRoomID    = errors.New("missing room id")
	ErrRoomIDTooShort   = errors.New("room id too short")
	ErrUsernameTooShort = errors.New("username too short")
)

// Validate checks a candidate identity before a join attempt. Checks run in a
// fixed order and stop at the first failure, so callers always surface a single
// stable reason:
//
//	empty username, empty room id, short room id, short username.
func Validate(i Identity) error {
	i = i.Normalized()
	if len(i.Username) == 0 {
		return ErrMissingUsername
	}
	if len(i.RoomID) == 0 {
		return ErrMissingRoomID
	}
	if len(i.RoomID) < MinRoomIDLen {
		return ErrRoomIDTooShort
	}
	if len(i.Username) < MinUsernameLen {
		return ErrUsernameTooShort
	}
	return nil
}
