// Package assets embeds the browser client script and stylesheet
package assets

import (
	"embed"
	"io/fs"
)

//go:embed client/*
var clientFS embed.FS

// ClientFS returns the embedded client files
func ClientFS() fs.FS {
	sub, err := fs.Sub(clientFS, "client")
	if err != nil {
		panic(err)
	}
	return sub
}

// GetClientJS returns the scroll-follow browser script
func GetClientJS() ([]byte, error) {
	return clientFS.ReadFile("client/scrollfollow.js")
}

// GetClientCSS returns the split-pane stylesheet
func GetClientCSS() ([]byte, error) {
	return clientFS.ReadFile("client/scrollfollow.css")
}
