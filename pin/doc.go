// Package pin turns a render request into card bytes.
//
// Generation resolves the Pin and its manifest, applies an authorized
// bundle (which may swap the manifest version and carry signed params),
// runs the data code with the merged params, and renders the UI code with
// the resulting props. Data code failures degrade to rendering without
// the data result; a missing Pin, missing UI code or failed render are
// errors the server maps to status codes.
package pin
