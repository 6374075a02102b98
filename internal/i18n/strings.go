// Package i18n holds the UI string tables for the supported languages.
package i18n

var tables = map[string]map[string]string{
	"English": {
		"app_title":        "ChefAI",
		"tagline":          "Snap your ingredients, get recipes",
		"upload_label":     "Upload a photo of your ingredients",
		"analyze_button":   "Find recipes",
		"login_title":      "Log in or register",
		"username_label":   "Username",
		"password_label":   "Password",
		"login_button":     "Continue",
		"login_error":      "Invalid username or password",
		"logout_link":      "Log out",
		"account_title":    "Your scans",
		"no_scans":         "No scans yet. Upload an ingredient photo to get started.",
		"scan_title":       "Scan details",
		"settings_title":   "Settings",
		"mode_label":       "Appearance",
		"mode_light":       "Light",
		"mode_dark":        "Dark",
		"language_label":   "Language",
		"units_label":      "Units",
		"save_button":      "Save",
		"ingredients":      "Ingredients",
		"instructions":     "Instructions",
		"time_minutes":     "Minutes",
		"skill_level":      "Skill level",
		"not_found":        "Page not found",
	},
	"Bulgarian": {
		"app_title":        "ChefAI",
		"tagline":          "Снимай продуктите, получи рецепти",
		"upload_label":     "Качи снимка на продуктите си",
		"analyze_button":   "Намери рецепти",
		"login_title":      "Вход или регистрация",
		"username_label":   "Потребителско име",
		"password_label":   "Парола",
		"login_button":     "Продължи",
		"login_error":      "Невалидно потребителско име или парола",
		"logout_link":      "Изход",
		"account_title":    "Твоите сканирания",
		"no_scans":         "Все още няма сканирания. Качи снимка на продукти, за да започнеш.",
		"scan_title":       "Детайли за сканирането",
		"settings_title":   "Настройки",
		"mode_label":       "Изглед",
		"mode_light":       "Светъл",
		"mode_dark":        "Тъмен",
		"language_label":   "Език",
		"units_label":      "Мерни единици",
		"save_button":      "Запази",
		"ingredients":      "Продукти",
		"instructions":     "Инструкции",
		"time_minutes":     "Минути",
		"skill_level":      "Ниво на умение",
		"not_found":        "Страницата не е намерена",
	},
}

// Strings returns the full string table for language, falling back to
// English for unknown languages.
func Strings(language string) map[string]string {
	if table, ok := tables[language]; ok {
		return table
	}
	return tables["English"]
}

// T looks up one key in the given language, falling back to English and
// finally to the key itself.
func T(language, key string) string {
	if v, ok := tables[language][key]; ok {
		return v
	}
	if v, ok := tables["English"][key]; ok {
		return v
	}
	return key
}
