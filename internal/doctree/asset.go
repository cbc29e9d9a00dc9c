package doctree

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Asset is a string field naming binary content: an absolute http(s) URL
// or a tree path relative to the owning document. Assets are registered
// when decoded and never resolved.
type Asset struct {
	location string
	remote   bool
	ctx      *Context
}

// NewAsset parses location as it would appear in a document.
func NewAsset(location string) (Asset, error) {
	var a Asset
	if err := a.set(location); err != nil {
		return Asset{}, err
	}
	return a, nil
}

func (a *Asset) set(location string) error {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		u, err := url.Parse(location)
		if err != nil || u.Host == "" {
			return &InvalidReferenceError{Pointer: location, Reason: "malformed asset URL"}
		}
		a.location, a.remote = location, true
		return nil
	}
	p, err := ParsePointer(location)
	if err != nil {
		return err
	}
	a.location, a.remote = string(p), false
	return nil
}

// Location returns the path or URL as written, or as published.
func (a *Asset) Location() string { return a.location }

// IsLocal reports whether the asset names a file inside the tree.
func (a *Asset) IsLocal() bool { return !a.remote }

// Context returns the context of the document the asset was decoded in.
func (a *Asset) Context() *Context { return a.ctx }

// TreePath resolves a local asset against its owning document.
func (a *Asset) TreePath() (string, error) {
	if a.remote {
		return "", fmt.Errorf("doctree: asset %s: %w", a.location, ErrRemoteAsset)
	}
	if a.ctx == nil {
		return "", fmt.Errorf("doctree: asset %s: %w", a.location, ErrNoContext)
	}
	return ResolvePath(a.ctx.path, a.location)
}

// OSPath returns the filesystem path of a local asset.
func (a *Asset) OSPath() (string, error) {
	p, err := a.TreePath()
	if err != nil {
		return "", err
	}
	return a.ctx.tree.OSPath(p), nil
}

// Publish replaces the location with the URL the content was published
// under. The asset becomes remote.
func (a *Asset) Publish(u string) {
	a.location = u
	a.remote = true
}

func (a *Asset) attach(ctx *Context) error {
	if a.ctx != nil {
		return ErrContextAttached
	}
	a.ctx = ctx
	return nil
}

func (a Asset) String() string { return a.location }

// MarshalJSON writes the location as a JSON string.
func (a Asset) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.location)
}

// UnmarshalJSON reads a location string.
func (a *Asset) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("asset must be a string: %w", err)
	}
	return a.set(s)
}
