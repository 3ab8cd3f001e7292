// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

// Package auth provides authentication primitives for DevCollab.
//
// # Domain Types
//
//   - [Identity] - a registered principal with an email and password hash
//   - [PasswordReset] - a single-use, time-boxed password reset record
//
// # Services
//
//   - [TokenService] - issues and verifies signed, expiring session tokens
//   - [PasswordResetService] - the reset request and consumption lifecycle
//   - [AccountService] - registration, login and current-identity lookup
//
// # Credentials
//
// Passwords are hashed with argon2id. Legacy bcrypt hashes still verify and are
// upgraded on the next successful login. Raw reset tokens leave this package
// only inside the recovery email; the store sees a SHA-256 digest.
package auth
