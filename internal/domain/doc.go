// Package domain contains the persisted entities of KeepStone: projects,
// artifacts and configuration overrides, together with their validation.
package domain
