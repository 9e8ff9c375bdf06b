// Package auth verifies HMAC-signed bearer tokens and yields the tenant
// identity they carry. The subscribe path treats verification failure as a
// soft signal (fall back to untrusted hints); the write path treats it as a
// hard rejection.
package auth
