package router

import (
	"regexp"
	"strings"
)

var identityPatterns = compileAll(
	`(?i)what.*your.*name`,
	`(?i)who.*are.*you`,
	`(?i)who.*made.*you`,
	`(?i)who.*created.*you`,
	`(?i)who.*developed.*you`,
	`(?i)what.*are.*you`,
	`(?i)tell.*me.*about.*yourself`,
	`(?i)introduce.*yourself`,
	`(?i)meligy`,
	`(?i)meleji`,
	`ما.*اسمك`,
	`من.*أنت`,
	`من.*صنعك`,
	`من.*طورك`,
	`من.*صممك`,
	`عرف.*نفسك`,
	`أخبرني.*عن.*نفسك`,
	`ميليجي`,
	`مليجي`,
)

// Broader than the chat fallback hints: "who"/"what" words in Arabic count.
var identityArabic = regexp.MustCompile(`[\x{0600}-\x{06FF}]|عربي|اسم|من|أنت|ما`)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// IsIdentityQuestion reports whether input asks who the assistant is.
func IsIdentityQuestion(input string) bool {
	for _, re := range identityPatterns {
		if re.MatchString(input) {
			return true
		}
	}
	return false
}

// IdentityResponse returns the fixed biography in the language of input.
func IdentityResponse(input string) string {
	if identityArabic.MatchString(input) {
		return arabicBio
	}
	return englishBio
}

var arabicBio = strings.TrimSpace(`
## أهلاً بيك! أنا **ميليجي** 👋

**مين أنا؟**
أنا ميليجي! 😊 أول مساعد ذكي مصري 100% - مولود ومتربي في مصر أم الدنيا 🇪🇬

**مين عملني؟**
الأستاذ **جوزيف إبراهيم** وشركة **Vision AI** المصرية - دي شركة رائدة في كل حاجة تخص الذكاء الاصطناعي!

**بعمل إيه؟**
- 🧠 بنظم أفكارك وأعملها خرائط ذهنية جميلة
- 🔍 بدور لك على أي حاجة في النت 24/7
- 📊 بعمل جداول وتحليلات مفيدة
- 🎨 برسم صور حلوة
- 💡 بحل أي مشكلة معاك بطريقة ذكية

**مهمتي:**
إني أكون صاحبك اللي يساعدك في أي حاجة تحتاجها، وأفضل مصري أصيل! 😊

---
*صنع في مصر بكل فخر 🇪🇬 | شركة Vision AI*
`)

var englishBio = strings.TrimSpace(`
## Hey there! I'm **Meligy** 👋

**Who am I?**
I'm Meligy! 😊 The very first AI assistant born and raised in Egypt 🇪🇬 - and I'm pretty excited about it!

**Who created me?**
**Joseph Ibrahim** and his amazing team at **Vision AI** - they're this incredible Egyptian company that's leading the way in AI!

**What do I do?**
- 🧠 Turn your messy thoughts into beautiful, clear mind maps
- 🔍 Hunt down any info you need from the web 24/7
- 📊 Create awesome tables and smart analyses
- 🎨 Generate cool images and visuals
- 💡 Brainstorm creative solutions with you

**My mission:**
To be your thinking buddy who helps with anything you need, while staying proudly Egyptian! 😊

---
*Proudly made in Egypt 🇪🇬 | Vision AI Company*
`)
