// SPDX-FileCopyrightText: © 2026 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

// Package crypto provides the hash codes, keys and signatures exchanged
// with the GNUnet daemon, in both their in-memory and on-wire forms.
//
// Keys come in two flavours, ECDSA and EDDSA, distinguished by a
// KeyType.  Inside daemon messages a key is prefixed by a 4 byte big
// endian tag; the canonical (storage and hashing) encoding uses a one
// byte discriminant instead.
package crypto
