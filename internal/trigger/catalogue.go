package trigger

// DefaultCategories is the built-in trigger catalogue. Thresholds were tuned
// against cosine-similarity scores from the CLIP broad stage; safety-critical
// categories run deliberately low so that misses are rare and the confirmation
// stage absorbs the extra false positives.
func DefaultCategories() []TriggerCategory {
	return []TriggerCategory{
		{
			Name:     "Violence",
			Column:   "Violence_timestamps",
			Strategy: StrategyBroadConfirm,
			VisualPrompts: []string{
				"physical violence",
				"person punching",
				"person hitting another person",
				"fight scene",
				"assault",
				"kicking someone",
				"choking someone",
			},
			DefaultThreshold: 0.28,
			ConfirmTemplate:  "Is there physical violence or fighting in this image? Answer YES or NO.",
		},
		{
			Name:     "Blood/Gore",
			Column:   "Blood/Gore_timestamps",
			Strategy: StrategyBroadConfirm,
			VisualPrompts: []string{
				"blood",
				"gore",
				"bloody wound",
				"open wound",
				"severe injury",
				"bloody scene",
				"graphic injury",
			},
			DefaultThreshold: 0.30,
			ConfirmTemplate:  "Is there blood or gore visible in this image? Answer YES or NO.",
		},
		{
			Name:     "Self-Harm/Suicide",
			Column:   "Self-Harm/Suicide_timestamps",
			Strategy: StrategyBroadConfirm,
			VisualPrompts: []string{
				"self harm",
				"cutting wrist",
				"person attempting suicide",
				"hanging",
				"overdose pills",
				"person on ledge about to jump",
				"razor blade near wrist",
			},
			DefaultThreshold: 0.20,
			SafetyCritical:   true,
			ConfirmTemplate:  "Does this image depict self-harm or suicidal behavior? Answer YES or NO.",
		},
		{
			Name:     "Sexual_Assault/Rape",
			Column:   "Sexual_Assault/Rape_timestamps",
			Strategy: StrategyBroadConfirm,
			VisualPrompts: []string{
				"sexual assault",
				"non-consensual touching",
				"person forcing themselves on another",
				"victim struggling against attacker",
				"sexual violence",
				"rape scene",
			},
			DefaultThreshold: 0.18,
			SafetyCritical:   true,
			ConfirmTemplate:  "Does this image depict sexual assault or non-consensual contact? Answer YES or NO.",
		},
		{
			Name:     "Medical_Context/Hospitals",
			Column:   "Medical_Context/Hospitals_timestamps",
			Strategy: StrategyBroadConfirm,
			VisualPrompts: []string{
				"hospital room",
				"surgery room",
				"doctor performing surgery",
				"medical equipment",
				"IV drip",
				"syringe needle",
				"hospital bed",
				"operating table",
			},
			DefaultThreshold: 0.26,
			ConfirmTemplate:  "Is this a medical or hospital setting? Answer YES or NO.",
		},
		{
			Name:     "Spiders",
			Column:   "Spiders_timestamps",
			Strategy: StrategyBroad,
			VisualPrompts: []string{
				"spider",
				"tarantula",
				"large spider",
			},
			DefaultThreshold: 0.50,
			ConfirmTemplate:  "Is there a spider in this image? Answer YES or NO.",
		},
		{
			Name:     "Spitting/Vomiting",
			Column:   "Spitting/Vomiting_timestamps",
			Strategy: StrategyFusion,
			VisualPrompts: []string{
				"person vomiting",
				"person retching over toilet",
				"person about to vomit",
				"person clutching stomach in pain",
				"person bending over toilet",
				"motion sickness",
				"person spitting",
			},
			AudioPrompts: []string{
				"sound of vomiting",
				"person retching",
				"gagging sound",
				"heaving sound",
			},
			DefaultThreshold: 0.22,
			SafetyCritical:   true,
			ConfirmTemplate:  "Is someone vomiting or about to vomit in this image? Answer YES or NO.",
		},
		{
			Name:     "Alcohol",
			Column:   "Alcohol_timestamps",
			Strategy: StrategyBroadConfirm,
			VisualPrompts: []string{
				"drinking alcohol",
				"beer bottle",
				"wine glass",
				"whiskey glass",
				"drunk person",
				"bar with alcohol",
				"cocktail drink",
			},
			DefaultThreshold: 0.28,
			ConfirmTemplate:  "Is alcohol being consumed or prominently shown? Answer YES or NO.",
		},
		{
			Name:     "Drugs/Smoking",
			Column:   "Drugs/Smoking_timestamps",
			Strategy: StrategyBroadConfirm,
			VisualPrompts: []string{
				"smoking cigarette",
				"injecting drugs",
				"snorting cocaine",
				"smoking marijuana",
				"drug use",
				"drug paraphernalia",
				"syringe with drugs",
			},
			DefaultThreshold: 0.27,
			ConfirmTemplate:  "Is drug use or smoking depicted in this image? Answer YES or NO.",
		},
	}
}

// DefaultRegistry builds the registry for the built-in catalogue. The
// catalogue is static, so a construction error is a programming bug.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultCategories())
	if err != nil {
		panic("trigger: invalid built-in catalogue: " + err.Error())
	}
	return r
}
