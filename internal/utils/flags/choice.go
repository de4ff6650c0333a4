package flags

import (
	"fmt"
	"strings"
)

const (
	choicePlaceholderTemplate = "<%s>"
	choiceSeparatorLiteral    = "|"
	choiceUsageEmptyTemplate  = "`%s`"
	choiceUsageFullTemplate   = "`%s` %s"
	choiceInvalidTemplate     = "unsupported value %q, expected one of %s"
	choiceListSeparator       = ", "
)

// FormatChoiceUsage renders `<a|B|c>` followed by the description, upper-casing the default choice.
func FormatChoiceUsage(defaultChoice string, choices []string, description string) string {
	placeholder := fmt.Sprintf(choicePlaceholderTemplate, strings.Join(displayChoices(defaultChoice, choices), choiceSeparatorLiteral))
	if len(strings.TrimSpace(description)) == 0 {
		return fmt.Sprintf(choiceUsageEmptyTemplate, placeholder)
	}
	return fmt.Sprintf(choiceUsageFullTemplate, placeholder, description)
}

// displayChoices drops blank and case-insensitive duplicate choices, keeping first-seen order.
func displayChoices(defaultChoice string, choices []string) []string {
	defaultKey := choiceKey(defaultChoice)
	displayed := make([]string, 0, len(choices))
	seen := make(map[string]bool, len(choices))
	for _, choice := range choices {
		key := choiceKey(choice)
		if len(key) == 0 || seen[key] {
			continue
		}
		seen[key] = true
		if key == defaultKey {
			displayed = append(displayed, strings.ToUpper(strings.TrimSpace(choice)))
			continue
		}
		displayed = append(displayed, strings.TrimSpace(choice))
	}
	return displayed
}

// NormalizeChoice returns the lower-cased value when it is one of choices and an error listing them otherwise.
func NormalizeChoice(value string, choices []string) (string, error) {
	normalizedValue := choiceKey(value)
	for _, choice := range choices {
		if choiceKey(choice) == normalizedValue {
			return normalizedValue, nil
		}
	}
	return "", fmt.Errorf(choiceInvalidTemplate, value, strings.Join(choices, choiceListSeparator))
}

func choiceKey(choice string) string {
	return strings.ToLower(strings.TrimSpace(choice))
}
