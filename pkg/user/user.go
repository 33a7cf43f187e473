// Package user implements system user utilities.
package user

import (
	"fmt"
	"os"
	"os/user"
	"runtime"
)

// Get returns the current user name and host.
func Get() string {
	u, err := user.Current()
	if err != nil {
		return fmt.Sprintf("user=%s", os.Getenv("USER"))
	}
	return fmt.Sprintf("user=%s,hostname=%s,os=%s,arch=%s",
		u.Username,
		hostname(),
		runtime.GOOS,
		runtime.GOARCH,
	)
}

// Metadata returns the object metadata attached to uploads.
func Metadata(kind string) map[string]string {
	return map[string]string{
		"Kind": kind,
		"User": Get(),
	}
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		h = os.Getenv("HOSTNAME")
	}
	return h
}
