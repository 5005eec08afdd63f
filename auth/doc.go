/*
Package auth is a small pluggable library for authentication and authorization of HTTP requests.

Backends

A Backend extracts credentials from a request and resolves them to a User.
Available backends are HTTP Basic (BasicBackend), login form sessions (SessionBackend),
OAuth2 bearer tokens (BearerBackend) and TLS client certificates (ClientCertBackend).
OAuth2Login implements the authorization code flow and logs the user in through a SessionBackend.

A Chain combines backends. The first backend which finds credentials in the request decides:

  Chain{basic, bearer, cert, session}

If the request carries a broken Basic header, the session cookie is not considered.

Permissions

Permissions are generic. A PermissionSet is either a BitSet (permissions are bit flags) or a HashSet
(any comparable type). A PermissionProvider returns the permissions of a user. CachedProvider puts a
Cache in front of it, either in memory (MemoryCache) or in Redis (RedisCache).

Require and Allowed check permissions of the user which Middleware has stored in the request context.
*/
package auth
