package callbacks

import (
	"strconv"
	"strings"
)

// PayloadInt parses the remainder after prefix as a positive int.
func PayloadInt(data, prefix string) (int, error) {
	rest, ok := TrimPrefix(data, prefix)
	if !ok {
		return 0, strconv.ErrSyntax
	}
	return positiveInt(rest)
}

// PayloadParts splits the remainder after prefix into at most n parts.
func PayloadParts(data, prefix string, n int) ([]string, error) {
	rest, ok := TrimPrefix(data, prefix)
	if !ok {
		return nil, strconv.ErrSyntax
	}
	return strings.SplitN(rest, Sep, n), nil
}

// PayloadIntAndString parses "<prefix>_<int>_<string>".
func PayloadIntAndString(data, prefix string) (int, string, error) {
	parts, err := PayloadParts(data, prefix, 2)
	if err != nil {
		return 0, "", err
	}
	if len(parts) != 2 || parts[1] == "" {
		return 0, "", strconv.ErrSyntax
	}
	n, err := positiveInt(parts[0])
	if err != nil {
		return 0, "", err
	}
	return n, parts[1], nil
}

func positiveInt(s string) (int, error) {
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}
