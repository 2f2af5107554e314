// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Package store owns the Inkwell database schema and connection setup.
// Schema changes ship as embedded golang-migrate migrations.
package store
