/*
Package cipher defeats the stream-URL signature obfuscation by statically
analyzing the player script and replaying the transforms it would perform.

The player script is treated as opaque text and is never executed. Parse
recovers two things from it: the signature timestamp the script reports,
and the ordered list of string transforms its decipher routine applies.
Both are packaged into an immutable Manifest whose Decipher method decrypts
per-stream signature tokens.

# Analysis phases

Parse proceeds through five ordered phases, each of which must succeed:

 1. Signature timestamp extraction.
 2. Decipher function location (two minifier variants of the
    split-transform-join shape).
 3. Resolution of the operation container object the function delegates to.
 4. Container lookup and structural classification of its methods into
    reverse, swap and slice operations. Extraction balances nested braces
    and is aware of string literals, since method bodies contain both.
 5. Replay of the call sequence inside the decipher body, in source order.

Failures are structured *Error values with a stable code per phase; a
partial manifest is never produced.

# Concurrency

Operations, Decipher and Parse are pure. Cache is the only shared mutable
state: a single-slot memoized resolution with in-flight de-duplication,
scoped to one client session. Failed resolutions are not cached.
*/
package cipher
