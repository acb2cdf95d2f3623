package feed

import "regexp"

// Phrases are matched against normalized text, patterns against raw text.
// Rule order is the classifier precedence and must follow taxonomy order.
var defaultRules = []rule{
	{
		Category: CategoryHiredAnnouncement,
		Phrases: []string{
			"i'm excited to announce", "i am excited to announce",
			"i'm thrilled to announce", "i am thrilled to announce",
			"i'm happy to announce", "i am happy to announce",
			"i'm pleased to announce", "i am pleased to announce",
			"i'm delighted to announce", "i'm proud to announce",
			"to announce that i", "to share that i",
			"i've accepted", "i have accepted", "accepted an offer", "offer accepted",
			"grateful to accept", "honored to accept",
			"i'm joining", "i am joining", "i'll be joining", "i will be joining",
			"starting a new role", "starting my new role",
			"starting a new position", "starting my new position",
			"starting a new job", "starting my new job",
			"beginning a new role", "beginning my new role",
			"officially starting", "excited to start", "thrilled to start",
			"can't wait to start", "cant wait to start",
			"i'm starting as", "i am starting as", "i'll be starting as",
			"i'm joining as", "i am joining as",
			"new chapter", "next chapter",
			"i'll be interning at", "i will be interning at", "excited to intern at",
			"starting my internship at", "incoming intern", "summer intern at",
			"#newrole", "#newjob", "#newposition", "#incomingintern",
		},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:accepted|accepting)\s+(?:an?\s+)?(?:job\s+)?offer\b`),
			regexp.MustCompile(`(?i)\b(?:joining|starting|beginning)\s+(?:a\s+|my\s+)?new\s+(?:role|job|position)\b`),
			regexp.MustCompile(`(?i)\b(?:i\s*(?:am|'m|’m)|i\s+will|i\s*(?:'ll|’ll))\s+be\s+(?:joining|starting|beginning)\b`),
			regexp.MustCompile(`(?i)\bincoming\s+\w+\s+(?:intern|co-?op)\b`),
		},
	},
	{
		Category: CategoryRecruiterHiring,
		Phrases: []string{
			"we are hiring", "we're hiring", "we are now hiring", "we're now hiring",
			"we are currently hiring", "we're currently hiring",
			"we are actively hiring", "we're actively hiring",
			"now hiring", "hiring now", "currently hiring", "actively hiring",
			"hiring immediately", "hiring urgently", "urgent hiring", "hiring asap",
			"open role", "open position", "positions available", "position available",
			"roles available", "job opening", "vacancy", "vacancies",
			"we're recruiting", "we are recruiting", "recruiting for", "hiring for",
			"growing the team", "expanding the team",
			"job description", "jd in comments", "responsibilities include", "requirements include",
			"apply now", "apply today", "apply here", "apply below", "apply via", "apply through",
			"submit your application", "application link", "link to apply", "apply in the comments",
			"send your resume", "send your cv", "email your resume", "email your cv",
			"dm me your resume", "dm me your cv", "drop your resume",
			"we're looking for", "we are looking for", "we're seeking", "we are seeking",
			"looking to hire", "join our team", "referrals welcome", "open requisition",
			"#hiring", "#werehiring", "#wearehiring", "#jobopening", "#jobopenings",
			"#openroles", "#recruiting", "#vacancy",
		},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bwe\s*(?:are|'re|’re)\s*(?:actively\s+|currently\s+|now\s+)?hiring\b`),
			regexp.MustCompile(`(?i)\b(?:now|currently|actively)\s+hiring\b`),
			regexp.MustCompile(`(?i)\b(?:open|available)\s+(?:roles?|positions?|openings?)\b`),
			regexp.MustCompile(`(?i)\bapply\s+(?:here|now|today|below|above|via|through)\b`),
			regexp.MustCompile(`(?i)\b(?:dm|inbox|message)\s+me\s+(?:your\s+)?(?:resume|cv)\b`),
			regexp.MustCompile(`(?i)\bemail\s+(?:me\s+)?(?:your\s+)?(?:resume|cv)\b`),
			regexp.MustCompile(`(?i)\breferrals?\s+(?:welcome|needed)\b`),
			regexp.MustCompile(`(?i)\breq(?:uisition)?\s*(?:id|#)\s*:?\s*\w+`),
		},
	},
	{
		Category: CategoryHustleCulture,
		Phrases: []string{
			"rise and grind", "grindset", "while you were sleeping", "while you slept",
			"no days off", "no weekends", "outwork everyone", "outwork the competition",
			"stay hard", "discipline equals freedom", "motivation is temporary",
			"sleep is for the weak", "the grind never stops", "hustle never stops",
			"4am club", "5am club", "4 am club", "5 am club",
			"cold shower", "grind harder", "hustle harder", "keep grinding",
			"i don't take days off", "work while they sleep", "same 24 hours",
		},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:rise\s+and\s+grind|grindset)\b`),
			regexp.MustCompile(`(?i)\bno\s+days?\s+off\b`),
			regexp.MustCompile(`(?i)\b(?:woke|wake|waking)\s+up\s+at\s+[345]\s*(?::\s*\d\d)?\s*am\b`),
			regexp.MustCompile(`(?i)\bout-?work(?:ing)?\b`),
		},
	},
	{
		Category: CategoryAIDoomerTake,
		Phrases: []string{
			"swe is dead", "software engineering is dead", "coding is dead", "programming is dead",
			"stop learning to code", "don't learn to code", "do not learn to code",
			"ai will replace developers", "ai will replace engineers", "ai will replace programmers",
			"developers are obsolete", "engineers are obsolete", "programmers are obsolete",
			"juniors are cooked", "junior devs are cooked", "entry level is dead", "entry-level is dead",
			"no one will hire juniors", "agents will replace", "llms will replace",
			"your job will be automated", "automation will replace you",
		},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:swe|software\s+engineering|programming|coding)\s+is\s+(?:dead|over)\b`),
			regexp.MustCompile(`(?i)\b(?:ai|llms?|agents?)\s+will\s+replace\b`),
			regexp.MustCompile(`(?i)\b(?:juniors?|entry\s*-?\s*level)\s+(?:devs?\s+)?(?:are|is)\s+(?:cooked|dead|gone)\b`),
			regexp.MustCompile(`(?i)\b(?:stop|don'?t|don’t|do\s+not)\s+learn(?:ing)?\s+to\s+code\b`),
		},
	},
	{
		Category: CategoryChildProdigyFlex,
		Phrases: []string{
			"high schooler built", "high schooler founded", "high schooler launched",
			"middle schooler built", "teenager built", "teen founder", "teen ceo",
			"teenage founder", "teenage ceo", "high school founder", "high school ceo",
			"when i was 15", "when i was 16", "when i was 17",
			"freshman in high school", "sophomore in high school",
			"junior in high school", "senior in high school",
		},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b1[2-7]\s*-?\s*years?\s*-?\s*old\b`),
			regexp.MustCompile(`(?i)\bi\s*(?:am|'m|’m)\s+1[2-7]\b`),
			regexp.MustCompile(`(?i)\b(?:high|middle)\s+school(?:er)?s?\s+(?:built|founded|launched|created|started|shipped)\b`),
		},
	},
	{
		Category: CategorySponsoredAd,
		Phrases: []string{
			"free trial", "limited time offer", "get the guide", "use code", "#sponsored",
		},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?im)^\s*(?:promoted|sponsored)(?:\s+by\b.*)?\s*$`),
			regexp.MustCompile(`(?i)\b(?:book|request|schedule)\s+(?:a\s+|your\s+)?(?:free\s+)?demo\b`),
			regexp.MustCompile(`(?i)\b(?:start|claim)\s+(?:your\s+)?(?:free\s+)?trial\b`),
		},
	},
	{
		Category: CategorySalesPitch,
		Phrases: []string{
			"book a call", "calendar link", "limited spots", "my course", "my program",
			"join the waitlist", "case study", "link in bio", "subscribe to my newsletter",
		},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:dm|inbox)\s+me\b`),
			regexp.MustCompile(`(?i)\bbook\s+(?:a\s+)?(?:free\s+)?call\b`),
			regexp.MustCompile(`(?i)\b(?:waitlist|cohort)\b`),
			regexp.MustCompile(`(?i)\broi\b`),
		},
	},
	{
		Category: CategoryJobSeeking,
		Phrases: []string{
			"open to work", "#opentowork", "looking for new opportunities",
			"seeking new opportunities", "any leads", "laid off", "impacted by layoffs",
			"my role was eliminated", "position eliminated", "looking for my next role",
		},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:\bopen\s+to\s+work\b|#opentowork\b)`),
			regexp.MustCompile(`(?i)\b(?:laid\s+off|layoffs?)\b`),
			regexp.MustCompile(`(?i)\b(?:role|position)\s+(?:was\s+)?(?:eliminated|impacted)\b`),
		},
	},
	{
		Category: CategoryEventWebinar,
		Phrases: []string{
			"webinar", "workshop", "live session", "fireside chat", "save your spot",
			"save the date", "register here", "registration link", "join us live",
			"speaking at", "panel discussion",
		},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bsave\s+the\s+date\b`),
			regexp.MustCompile(`(?i)\b(?:register|registration)\b`),
			regexp.MustCompile(`(?i)\b(?:keynote|summit|conference)\b`),
		},
	},
	{
		Category: CategoryEngagementBait,
		Phrases: []string{
			"agree?", "thoughts?", "what do you think?", "comment below", "like if",
			"share if", "repost if", "tag someone", "follow for more", "repost this",
		},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bcomment\s+["'“‘][^"'”’]+["'”’]`),
			regexp.MustCompile(`(?i)\btag\s+(?:someone|a\s+friend|\d+)\b`),
			regexp.MustCompile(`♻️?\s*(?i:repost)`),
		},
	},
	{
		Category: CategoryEducationalTips,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b\d+\s+(?:tips|lessons|mistakes|steps|ways|habits|rules)\b`),
			regexp.MustCompile(`(?i)\bstep[\s-]+by[\s-]+step\b`),
			regexp.MustCompile(`(?i)\b(?:here's|here’s|here\s+is)\s+how\b`),
			regexp.MustCompile(`(?i)\bhow\s+to\b`),
			regexp.MustCompile(`(?i)\b(?:checklist|framework|cheat\s*sheet|playbook)\b`),
		},
	},
	{
		Category: CategoryProjectLaunch,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:i|we)\s+(?:just\s+)?(?:built|shipped|launched|released|open[\s-]?sourced)\b`),
			regexp.MustCompile(`(?i)\b(?:public\s+beta|v1\.0|v2\.0)\b`),
			regexp.MustCompile(`(?i)\bgithub\.com/`),
			regexp.MustCompile(`(?i)\b(?:introducing|announcing)\b`),
		},
	},
	{
		Category: CategoryCongratsCerts,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:congrats|congratulations)\b`),
			regexp.MustCompile(`(?i)\b(?:certification|certified|certificate|credential|badge)\b`),
			regexp.MustCompile(`(?i)\b(?:honored|humbled|grateful)\b`),
		},
	},
}
