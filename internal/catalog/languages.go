package catalog

// languageNames maps locale codes to the language name written in that language.
var languageNames = map[string]string{
	"POSIX":  "No translation",
	"af_ZA":  "Afrikaans",
	"am_ET":  "አማርኛ",
	"an_ES":  "Aragonés",
	"ar_AE":  "العربية",
	"as_IN":  "অসমীয়া",
	"ast_ES": "Asturianu",
	"az_AZ":  "Azərbaycan dili",
	"be_BY":  "беларуская мова",
	"bem_ZM": "Chibemba",
	"bn_IN":  "বাংলা",
	"brx_IN": "बड़ो",
	"bs_BA":  "Bosanski",
	"ca_ES":  "Català",
	"cs_CZ":  "Čeština",
	"da_DK":  "Dansk",
	"de_DE":  "Deutsch",
	"el_GR":  "ελληνικά",
	"en_AU":  "English (Australia)",
	"en_US":  "English (US)",
	"eo":     "Esperanto",
	"es_ES":  "Español",
	"et_EE":  "Eesti keel",
	"eu_ES":  "Euskara",
	"fi_FI":  "Suomi",
	"fr_FR":  "Français",
	"fur_IT": "Furlan",
	"gd_GB":  "Gàidhlig",
	"gl_ES":  "Galego",
	"gu_IN":  "ગુજરાતી",
	"he_IL":  "עִבְרִית",
	"hi_IN":  "हिन्दी",
	"hr_HR":  "Hrvatski jezik",
	"hu_HU":  "Magyar",
	"hy_AM":  "Հայերէն",
	"id_ID":  "Bahasa Indonesia",
	"is_IS":  "Íslenska",
	"it_IT":  "Italiano",
	"ja_JP":  "日本語",
	"kn_IN":  "ಕನ್ನಡ",
	"ko_KR":  "한국말",
	"lt_LT":  "Lietuvių kalba",
	"lv_LV":  "Latviešu valoda",
	"mai_IN": "মৈথিলী",
	"mg_MG":  "Malagasy",
	"mk_MK":  "Македонски јазик",
	"ml_IN":  "മലയാളം",
	"mn_MN":  "Монгол хэл",
	"mr_IN":  "मराठी",
	"ms_MY":  "Bahasa Melayu",
	"my_MM":  "မြန်မာစာ",
	"nb_NO":  "Bokmål",
	"nds_NL": "Plattdüütsch",
	"ne_NP":  "नेपाली",
	"nl_NL":  "Nederlands",
	"nn_NO":  "Nynorsk",
	"nso_ZA": "Sesotho sa Leboa",
	"oc_FR":  "Occitan",
	"or_IN":  "ଓଡ଼ିଆ",
	"pa_IN":  "ਪੰਜਾਬੀ",
	"pl_PL":  "Język polski",
	"pt_BR":  "Português (Brasil)",
	"pt_PT":  "Português",
	"ro_RO":  "Română",
	"ru_RU":  "Pусский язык",
	"rw_RW":  "Ikinyarwanda",
	"si_LK":  "සිංහල",
	"sk_SK":  "Slovenčina",
	"sl_SI":  "Slovenščina",
	"sq_AL":  "Shqip",
	"sr_RS":  "српски",
	"sv_SE":  "Svenska",
	"ta_IN":  "தமிழ்",
	"te_IN":  "తెలుగు",
	"tg_TJ":  "тоҷикӣ",
	"th_TH":  "ภาษาไทย",
	"tr_TR":  "Türkçe",
	"ug_CN":  "ئۇيغۇرچە",
	"uk_UA":  "Українська",
	"uz_UZ":  "Ўзбек",
	"vi_VN":  "Tiếng Việt",
	"wa_BE":  "Walloon",
	"xh_ZA":  "IsiXhosa",
	"zh_CN":  "汉语",
	"zh_HK":  "汉语 (香港)",
	"zh_TW":  "汉语 (臺灣)",
	"zu_ZA":  "IsiZulu",
}

// LanguageName returns the native name of code, or "" when it is unknown.
func LanguageName(code string) string {
	return languageNames[code]
}

// KnownLocale reports whether code has a display name.
func KnownLocale(code string) bool {
	_, ok := languageNames[code]
	return ok
}
