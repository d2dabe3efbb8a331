// Package project implements the project registry over the settings store.
package project

// Section is one ordered instruction block mapped to one heading of the
// generated article. Order is significant and preserved by JSON array
// encoding; the user appends, the registry never re-sorts.
type Section struct {
	Heading      string `json:"heading,omitempty"`
	Instructions string `json:"instructions"`
}

// Project is a named bundle of WordPress credentials and generation
// configuration. The name is the primary key: unique, case-sensitive,
// not normalised.
type Project struct {
	WordPressURL   string    `json:"wordpress_url"`
	WordPressUser  string    `json:"wordpress_user"`
	WordPressPass  string    `json:"wordpress_pass"`
	GenerationGoal string    `json:"generation_prompt"`
	ReferenceURL   string    `json:"reference_url,omitempty"`
	Sections       []Section `json:"sections,omitempty"`
	WordCount      int       `json:"word_count,omitempty"`
	Model          string    `json:"model,omitempty"`
}
