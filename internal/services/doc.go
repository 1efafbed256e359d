// Package services implements the catalog & transport collaborator the download pipeline talks to.
//
// # Session
//
// [Session] exposes track, artist and album lookups, audio key requests and encrypted file streams. Each
// call returns a [reactor.Future] that resolves only while the caller drives the session's reactor with
// [reactor.Run]. Lookups are independent requests: a failed lookup is never retried here.
//
// # HTTP Implementation
//
// [HTTPSession] talks to the catalog over HTTP:
//   - POST token_url : OAuth2 resource owner password grant, see [Connect]
//   - GET /v1/tracks/{id} : [TrackResponse]
//   - GET /v1/artists/{id}, GET /v1/albums/{id} : [NameResponse]
//   - GET /v1/keys/{track}/{file} : [KeyResponse]
//   - GET /v1/files/{file} : ranged reads of the encrypted file
//
// Identifiers go on the wire in their 22 character base62 form and file ids as hex. Every request
// passes a shared [rate.Limiter].
//
// # File Streams
//
// [FileStream] reads a file chunk by chunk using Range requests. Chunks are handed to the reader via
// reactor callbacks, which is why reading a stream while nobody turns the reactor blocks forever.
//
// # Error Handling
//
// Services use sentinel errors from the shared package:
//   - [shared.ErrAuthFailed] : password grant rejected
//   - [shared.ErrMissingCredentials] : username or password empty
//   - [shared.ErrNotFound] : 404 from any endpoint
//   - [shared.ErrAPIRequest] : any other failed request or malformed response
package services
