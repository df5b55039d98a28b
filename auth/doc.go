// Package auth decides what a render request is allowed to customize.
//
// A request may carry a customization bundle (query key "b") and a typed-data
// signature over it ("sig"). BundleAuthorizer decodes the bundle, checks the
// signed timestamp window, recovers the signer and confirms the signer owns
// the Pin. Every rejection degrades to the unauthorized decision; the
// request still renders with default content.
//
// The package also carries the credential gate for the live-preview
// endpoints: JWT and API-key authenticators composed behind an HTTP
// middleware.
package auth
