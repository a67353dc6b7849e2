// Package web embeds the HTML templates and static assets.
package web

import "embed"

// TemplatesFS holds layout.html plus one file per page.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds static assets (css/js/images).
//
//go:embed static/*
var StaticFS embed.FS
