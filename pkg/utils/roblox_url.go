package utils

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

var (
	profileURLPattern = regexp.MustCompile(`(?i)^(?:https?://)?(?:www\.|web\.)?roblox\.com/users/(\d+)(?:/.*)?$`)
	rawIDPattern      = regexp.MustCompile(`^\d+$`)

	// ErrInvalidUserID is returned when input is neither an ID nor a profile link.
	ErrInvalidUserID = errors.New("invalid Roblox user ID or profile URL")
)

// ParseUserID accepts a raw numeric user ID or a roblox.com profile URL.
func ParseUserID(input string) (uint64, error) {
	input = strings.TrimSpace(input)
	input = strings.TrimSuffix(strings.TrimPrefix(input, "<"), ">")

	var digits string
	switch {
	case rawIDPattern.MatchString(input):
		digits = input
	default:
		matches := profileURLPattern.FindStringSubmatch(input)
		if matches == nil {
			return 0, ErrInvalidUserID
		}

		digits = matches[1]
	}

	id, err := strconv.ParseUint(digits, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidUserID
	}

	return id, nil
}

// ProfileURL returns the public profile page of a user.
func ProfileURL(userID uint64) string {
	return "https://www.roblox.com/users/" + strconv.FormatUint(userID, 10) + "/profile"
}

// JoinURL returns the deep link that launches the client into the place
// the user is in, following them into their server.
func JoinURL(placeID, userID uint64) string {
	return "https://www.roblox.com/games/start?placeId=" + strconv.FormatUint(placeID, 10) +
		"&launchData=user:" + strconv.FormatUint(userID, 10)
}
