// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import "errors"

// Errors returned by Store implementations. Callers match them with errors.Is.
var (
	// ErrNotFound: no course, lecture, resource, section or chunk with that ID.
	ErrNotFound = errors.New("record not found")

	ErrTransactionFailed = errors.New("transaction failed")

	// ErrConflict is returned when a write raced another writer of the same keys.
	// Retrying the whole read-modify-write is safe.
	ErrConflict = errors.New("transaction conflict")

	ErrStorageClosed = errors.New("storage is closed")

	// ErrSerializationFailed wraps JSON and varint codec errors.
	ErrSerializationFailed = errors.New("serialization failed")
)
