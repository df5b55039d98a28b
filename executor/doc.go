// Package executor runs user-authored data code.
//
// Data code defines a main(params) function returning a plain object. The
// result is merged into render properties by the caller. Two
// implementations exist:
//
//   - Sandbox evaluates the code in-process with goja. Nothing from the host
//     is reachable except console, jsParams, a small Lit.Actions shim and,
//     when enabled, fetch.
//   - Remote POSTs {code, params} to an execution service and expects
//     {result, logs} back.
//
// Both honor the context deadline. A sandboxed script still running at the
// deadline is interrupted.
//
// # Usage
//
//	exec, err := executor.New(executor.Config{Mode: executor.ModeSandbox})
//	if err != nil {
//		return err
//	}
//	res, err := exec.Execute(ctx, code, map[string]any{"count": "5"})
//
// # Encrypted parameters
//
// Values shaped like {ciphertext, dataToEncryptHash, accessControlConditions}
// are passed to the code untouched. Decryption happens outside this package.
package executor
