package model

import "time"

// ManifestMeta carries the compiled manifest's identity. ManifestHash is
// always pure hex with the hash field itself elided from the bytes it was
// computed over; ManifestShort is its first seven characters.
type ManifestMeta struct {
	ManifestHash  string    `yaml:"manifest_hash"`
	ManifestShort string    `yaml:"manifest_short"`
	GeneratedAt   time.Time `yaml:"generated_at"`
}

// ManifestStep is one compiled, canonicalized step: its identity, its
// component/driver binding, and a reference to the materialized config
// file rather than the config itself.
type ManifestStep struct {
	ID            string   `yaml:"id"`
	Component     string   `yaml:"component"`
	Mode          Mode     `yaml:"mode"`
	ConfigRef     string   `yaml:"config_ref"`
	Needs         []string `yaml:"needs,omitempty"`
	Connection    string   `yaml:"connection,omitempty"`
}

// Pipeline identifies the compiled pipeline within a manifest.
type Pipeline struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// Manifest is the deterministic, content-addressed compiled form of an OML
// document. It never embeds a secret value; connection references remain
// symbolic (@family.alias) and are resolved at execution time.
type Manifest struct {
	Meta     ManifestMeta   `yaml:"meta"`
	Pipeline Pipeline       `yaml:"pipeline"`
	Steps    []ManifestStep `yaml:"steps"`
}
