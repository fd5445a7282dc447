package protocol

// This package implements parsing and serialising of the two device protocols
// that homelink speaks.
//
// The grammar is shared by the servers, the reference clients and the tests so
// they all agree on what a line means.
//
// - `Command` - A parsed client instruction.
// - `Response` - The single reply the server sends for a Command.
//
// === Socket protocol (TCP)
//
// - lines are `\n` delimited, an optional trailing `\r` is ignored
// - responses are written with `\r\n`
// - leading and trailing whitespace is trimmed before matching
// - keywords are case sensitive and lowercase
//
//  ```
//    > on\n
//    < Socket turned ON\r\n
//    > status\n
//    < Status: ON\r\n
//    > foo\n
//    < Unknown command: foo\r\n
//    > exit\n
//    < Goodbye\r\n
//  ```
//
// After `exit` the server closes the connection.
//
// Every line gets exactly one response line, including unrecognised input and
// lines that exceed the configured length limit.
//
// === Thermometer protocol (UDP)
//
// Any datagram is a read request; there are no keywords.
//
//  ```
//    > <any non-empty payload>
//    < Temperature: 21.4 C
//  ```
//
// Empty or non UTF-8 datagrams are answered with `Error: malformed query`.
