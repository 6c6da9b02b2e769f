// Package logger wraps zap for lovepack:
//   - a global sugared logger writing human-readable console lines,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing for the --log-level flag,
//   - convenience functions (Infof, InfoKV, ErrorKV, etc.).
//
// Every pipeline stage takes a context and logs through it, so stage names
// and per-run fields (arch, project root) follow the messages automatically.
package logger
