//go:build !unix

package hostinfo

func uname() (release, machine string) { return "", "" }
