package settings

import (
	"fmt"
	"strings"
)

var descriptions = map[string]string{
	"storage.image_path":              "Directory path where uploaded images are stored",
	"storage.allowed_extensions":      "Allowed file extensions for image uploads",
	"storage.max_file_size":           "Maximum file size for uploads (in bytes)",
	"storage.cleanup_threshold_hours": "Hours after which unused files are cleaned up",
	"sql_alchemy.loc":                 "Database directory location",
	"sql_alchemy.db":                  "Database filename",
	"trim.name":                       "Maximum characters for artifact name display",
	"trim.content":                    "Maximum characters for content preview",
	"trim.extra":                      "Extra characters allowed for display",
	"email.smtp_server":               "SMTP server hostname for email",
	"email.smtp_port":                 "SMTP server port number",
	"email.notification_days":         "Days before expiry to send notifications",
	"email.max_notifications":         "Maximum number of notifications per token",
	"email.notification_interval":     "Hours between notification attempts",
	"email.timezone":                  "Timezone for date calculations",
	"default_type":                    "Default artifact type to pre-select when creating new artifacts",
	"type":                            "Available artifact types (comma-separated list)",
	"backup.enabled":                  "Enable or disable automatic weekly backups",
	"backup.backup_path":              "Directory path where backup files are stored",
	"backup.keep_backups":             "Number of backup files to retain (older files are deleted)",
	"backup.backup_database":          "Include the database in backups",
	"backup.backup_images":            "Include uploaded images in backups (can be large)",
	"backup.backup_day":               "Day of the week when automatic backups are performed",
}

var sectionTitles = map[string]string{
	"storage":     "File Storage Settings",
	"sql_alchemy": "Database Settings",
	"trim":        "Display & Formatting",
	"email":       "Email & Notifications",
	"general":     "General Settings",
	"backup":      "Backup & Recovery Settings",
	"type":        "Artifact Types",
}

// sectionOrder lists known sections first; the rest follow alphabetically.
var sectionOrder = []string{"general", "type", "storage", "email", "backup", "trim", "sql_alchemy"}

// Built-in choice lists for select inputs.
var (
	fallbackTypeOptions = []string{"Token", "Troubleshoot", "Information", "Other"}
	weekdayOptions      = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
)

// Describe returns the human description of an item: its own description
// tag, the built-in table entry, or one derived from the key.
func Describe(item Item) string {
	if item.Description != "" {
		return item.Description
	}
	if d, ok := descriptions[item.Key]; ok {
		return d
	}
	words := strings.Fields(strings.NewReplacer(".", " ", "_", " ").Replace(item.Key))
	return fmt.Sprintf("Configuration setting for %s", titleWords(words))
}

// Title returns the display title of a key: its last segment, title-cased.
func Title(key string) string {
	if i := strings.LastIndex(key, "."); i >= 0 {
		key = key[i+1:]
	}
	return titleWords(strings.Fields(strings.ReplaceAll(key, "_", " ")))
}

// SectionOf returns the settings-page section a key belongs to.
func SectionOf(key string) string {
	if key == "type" || key == "default_type" {
		return "type"
	}
	if i := strings.Index(key, "."); i >= 0 {
		return key[:i]
	}
	return "general"
}

// SectionTitle returns the display title of a section.
func SectionTitle(section string) string {
	if t, ok := sectionTitles[section]; ok {
		return t
	}
	return titleWords(strings.Fields(strings.ReplaceAll(section, "_", " ")))
}

func titleWords(words []string) string {
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
