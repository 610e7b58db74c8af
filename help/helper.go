package help

import (
	"os"
	"os/user"
)

func HomeDir() string {
	if h := os.Getenv("HOME"); h != "" {
		return h
	}
	if u, err := user.Current(); err == nil {
		return u.HomeDir
	}
	// Windows fallback
	if h := os.Getenv("USERPROFILE"); h != "" {
		return h
	}
	return "." // last resort: current dir
}

// Coalesce returns s, or def when s is empty.
func Coalesce(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
