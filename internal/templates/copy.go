package templates

import "ResumeMailer/internal/models"

// message is the localized copy of one email. Fields are text/template
// strings evaluated against RenderInput.
type message struct {
	Subject    string
	Heading    string
	Paragraphs []string
	Action     string
	Path       string
}

type chrome struct {
	Friend      string
	Greeting    string
	Footer      string
	Unsubscribe string
	Progress    string
}

var chromes = map[models.Locale]chrome{
	models.LocaleEnglish: {
		Friend:      "there",
		Greeting:    "Hi {{.DisplayName}},",
		Footer:      "You are receiving this because you have a ResumeMailer account.",
		Unsubscribe: "Unsubscribe",
		Progress:    "Completion: {{.Completion}}%",
	},
	models.LocaleArabic: {
		Friend:      "صديقنا",
		Greeting:    "مرحباً {{.DisplayName}}،",
		Footer:      "تصلك هذه الرسالة لأن لديك حساباً لدينا.",
		Unsubscribe: "إلغاء الاشتراك",
		Progress:    "نسبة الإكمال: {{.Completion}}٪",
	},
	models.LocaleKurdish: {
		Friend:      "هاوڕێ",
		Greeting:    "سڵاو {{.DisplayName}}،",
		Footer:      "ئەم ئیمەیڵەت پێدەگات چونکە هەژمارێکت لای ئێمە هەیە.",
		Unsubscribe: "بەتاڵکردنەوەی بەشداریکردن",
		Progress:    "ڕێژەی تەواوبوون: {{.Completion}}٪",
	},
}

const abandonedVariant = "default"

var catalog = map[models.Campaign]map[string]map[models.Locale]message{
	models.CampaignWelcome: {
		"day0": {
			models.LocaleEnglish: {
				Subject:    "Welcome to ResumeMailer, {{.DisplayName}}!",
				Heading:    "Welcome aboard",
				Paragraphs: []string{"Your account is ready. Pick a template and start your first resume in minutes."},
				Action:     "Create my resume",
				Path:       "/dashboard",
			},
			models.LocaleArabic: {
				Subject:    "أهلاً بك، {{.DisplayName}}!",
				Heading:    "مرحباً بك معنا",
				Paragraphs: []string{"حسابك جاهز. اختر قالباً وابدأ سيرتك الذاتية الأولى خلال دقائق."},
				Action:     "إنشاء سيرتي الذاتية",
				Path:       "/dashboard",
			},
			models.LocaleKurdish: {
				Subject:    "بەخێربێیت، {{.DisplayName}}!",
				Heading:    "بەخێربێیت",
				Paragraphs: []string{"هەژمارەکەت ئامادەیە. قاڵبێک هەڵبژێرە و یەکەم سیڤییەکەت دەست پێبکە."},
				Action:     "دروستکردنی سیڤی",
				Path:       "/dashboard",
			},
		},
		"day2": {
			models.LocaleEnglish: {
				Subject:    "Three tips for a stronger resume",
				Heading:    "Make every line count",
				Paragraphs: []string{"Lead with results, keep it to one page when you can, and tailor your summary to the role."},
				Action:     "Edit my resume",
				Path:       "/dashboard",
			},
			models.LocaleArabic: {
				Subject:    "ثلاث نصائح لسيرة ذاتية أقوى",
				Heading:    "اجعل كل سطر مهماً",
				Paragraphs: []string{"ابدأ بالإنجازات، واحرص على صفحة واحدة قدر الإمكان، وخصص الملخص للوظيفة."},
				Action:     "تعديل سيرتي الذاتية",
				Path:       "/dashboard",
			},
			models.LocaleKurdish: {
				Subject:    "سێ ئامۆژگاری بۆ سیڤییەکی بەهێزتر",
				Heading:    "هەموو دێڕێک گرنگ بکە",
				Paragraphs: []string{"بە دەستکەوتەکان دەست پێبکە، لە یەک لاپەڕەدا بیهێڵەرەوە، و پوختەکەت بۆ کارەکە ڕێکبخە."},
				Action:     "دەستکاریکردنی سیڤی",
				Path:       "/dashboard",
			},
		},
		"day7": {
			models.LocaleEnglish: {
				Subject:    "Let AI polish your resume",
				Heading:    "Stronger wording in one click",
				Paragraphs: []string{"Our assistant can rewrite bullet points and translate your resume into Arabic or Kurdish."},
				Action:     "Try the assistant",
				Path:       "/dashboard",
			},
			models.LocaleArabic: {
				Subject:    "دع الذكاء الاصطناعي يحسّن سيرتك الذاتية",
				Heading:    "صياغة أقوى بنقرة واحدة",
				Paragraphs: []string{"يمكن لمساعدنا إعادة صياغة النقاط وترجمة سيرتك الذاتية إلى الإنجليزية أو الكردية."},
				Action:     "جرّب المساعد",
				Path:       "/dashboard",
			},
			models.LocaleKurdish: {
				Subject:    "با زیرەکی دەستکرد سیڤییەکەت باشتر بکات",
				Heading:    "دەربڕینی بەهێزتر بە یەک کرتە",
				Paragraphs: []string{"یاریدەدەرەکەمان دەتوانێت خاڵەکان دووبارە بنووسێتەوە و سیڤییەکەت وەربگێڕێت."},
				Action:     "یاریدەدەر تاقی بکەرەوە",
				Path:       "/dashboard",
			},
		},
		"day14": {
			models.LocaleEnglish: {
				Subject:    "Ready to apply, {{.DisplayName}}?",
				Heading:    "Export and share",
				Paragraphs: []string{"Download a polished PDF and start sending applications today."},
				Action:     "Download PDF",
				Path:       "/dashboard",
			},
			models.LocaleArabic: {
				Subject:    "هل أنت مستعد للتقديم، {{.DisplayName}}؟",
				Heading:    "صدّر وشارك",
				Paragraphs: []string{"نزّل ملف PDF أنيقاً وابدأ بإرسال طلباتك اليوم."},
				Action:     "تنزيل PDF",
				Path:       "/dashboard",
			},
			models.LocaleKurdish: {
				Subject:    "ئامادەیت بۆ پێشکەشکردن، {{.DisplayName}}؟",
				Heading:    "هەناردە و هاوبەشی بکە",
				Paragraphs: []string{"فایلێکی PDF دابەزێنە و ئەمڕۆ داواکارییەکانت بنێرە."},
				Action:     "دابەزاندنی PDF",
				Path:       "/dashboard",
			},
		},
	},
	models.CampaignAbandonedResume: {
		abandonedVariant: {
			models.LocaleEnglish: {
				Subject:    "Finish your {{.ResumeTitle}} resume",
				Heading:    "Your draft is waiting",
				Paragraphs: []string{"You started \"{{.ResumeTitle}}\" but have not finished it yet. Pick up right where you left off."},
				Action:     "Continue editing",
				Path:       "/resumes/{{.ResumeID}}/edit",
			},
			models.LocaleArabic: {
				Subject:    "أكمل سيرتك الذاتية {{.ResumeTitle}}",
				Heading:    "مسودتك بانتظارك",
				Paragraphs: []string{"بدأت \"{{.ResumeTitle}}\" ولم تكملها بعد. تابع من حيث توقفت."},
				Action:     "متابعة التعديل",
				Path:       "/resumes/{{.ResumeID}}/edit",
			},
			models.LocaleKurdish: {
				Subject:    "سیڤی {{.ResumeTitle}} تەواو بکە",
				Heading:    "ڕەشنووسەکەت چاوەڕێتە",
				Paragraphs: []string{"دەستت بە \"{{.ResumeTitle}}\" کرد بەڵام هێشتا تەواوت نەکردووە. لەو شوێنەوە بەردەوام بە کە وەستایت."},
				Action:     "بەردەوامبوون لە دەستکاری",
				Path:       "/resumes/{{.ResumeID}}/edit",
			},
		},
	},
	models.CampaignReengagement: {
		"30d": {
			models.LocaleEnglish: {
				Subject:    "We miss you, {{.DisplayName}}",
				Heading:    "It has been a while",
				Paragraphs: []string{"It has been {{.InactiveDays}} days since your last visit. Your resumes are right where you left them."},
				Action:     "Open my dashboard",
				Path:       "/dashboard",
			},
			models.LocaleArabic: {
				Subject:    "اشتقنا إليك، {{.DisplayName}}",
				Heading:    "مرّ وقت طويل",
				Paragraphs: []string{"مرّ {{.InactiveDays}} يوماً منذ زيارتك الأخيرة. سيرك الذاتية بانتظارك."},
				Action:     "فتح لوحة التحكم",
				Path:       "/dashboard",
			},
			models.LocaleKurdish: {
				Subject:    "بیرمان کردوویت، {{.DisplayName}}",
				Heading:    "ماوەیەکە نەتبینیوین",
				Paragraphs: []string{"{{.InactiveDays}} ڕۆژ تێپەڕیوە لە دوایین سەردانت. سیڤییەکانت چاوەڕێتن."},
				Action:     "کردنەوەی داشبۆرد",
				Path:       "/dashboard",
			},
		},
		"60d": {
			models.LocaleEnglish: {
				Subject:    "New templates since your last visit",
				Heading:    "Plenty has changed",
				Paragraphs: []string{"In the {{.InactiveDays}} days you have been away we added new templates and smarter AI suggestions."},
				Action:     "See what's new",
				Path:       "/templates",
			},
			models.LocaleArabic: {
				Subject:    "قوالب جديدة منذ زيارتك الأخيرة",
				Heading:    "الكثير تغيّر",
				Paragraphs: []string{"خلال {{.InactiveDays}} يوماً من غيابك أضفنا قوالب جديدة واقتراحات أذكى."},
				Action:     "اكتشف الجديد",
				Path:       "/templates",
			},
			models.LocaleKurdish: {
				Subject:    "قاڵبی نوێ لە دوایین سەردانتەوە",
				Heading:    "زۆر شت گۆڕاوە",
				Paragraphs: []string{"لەو {{.InactiveDays}} ڕۆژەی نەبوویت قاڵبی نوێ و پێشنیاری زیرەکترمان زیاد کرد."},
				Action:     "بینینی نوێکان",
				Path:       "/templates",
			},
		},
		"90d": {
			models.LocaleEnglish: {
				Subject:    "Is your resume still up to date?",
				Heading:    "Time for a refresh",
				Paragraphs: []string{"A lot can happen in {{.InactiveDays}} days. Add your latest role and keep your resume ready for the next opportunity."},
				Action:     "Update my resume",
				Path:       "/dashboard",
			},
			models.LocaleArabic: {
				Subject:    "هل سيرتك الذاتية محدّثة؟",
				Heading:    "حان وقت التحديث",
				Paragraphs: []string{"قد يحدث الكثير خلال {{.InactiveDays}} يوماً. أضف أحدث وظيفة لك وكن جاهزاً للفرصة القادمة."},
				Action:     "تحديث سيرتي الذاتية",
				Path:       "/dashboard",
			},
			models.LocaleKurdish: {
				Subject:    "ئایا سیڤییەکەت نوێکراوەتەوە؟",
				Heading:    "کاتی نوێکردنەوەیە",
				Paragraphs: []string{"لە {{.InactiveDays}} ڕۆژدا زۆر شت ڕوودەدات. دوایین کارەکەت زیاد بکە و ئامادە بە بۆ دەرفەتی داهاتوو."},
				Action:     "نوێکردنەوەی سیڤی",
				Path:       "/dashboard",
			},
		},
	},
}
