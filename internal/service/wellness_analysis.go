package service

import "math"

const (
	// minMoodDays 是进行相关性与回归分析所需的最少有效情绪天数
	minMoodDays = 3

	activityStrongPositive = 0.6
	activityNegative       = -0.3
	calorieStrongPositive  = 0.5
	calorieNegative        = -0.3
	combinedPositive       = 0.5
)

// 回归预测使用的固定输入点：2 次活动、200 千卡
var predictionPoint = [2]float64{2, 200}

const (
	insufficientInsight        = "Not enough mood data yet: log your mood on at least 3 days this week to unlock insights."
	insufficientRecommendation = "Log your mood every day to receive personalised recommendations."
)

// WellnessAnalysis 是一周数据的相关性、回归预测与规则化建议
type WellnessAnalysis struct {
	ActivityMoodCorrelation float64  `json:"activity_mood_correlation"`
	CalorieMoodCorrelation  float64  `json:"calorie_mood_correlation"`
	PredictedMood           float64  `json:"predicted_mood"`
	Insights                []string `json:"insights"`
	Recommendation          string   `json:"recommendation"`
	SufficientData          bool     `json:"sufficient_data"`
	ValidDays               int      `json:"valid_days"`
}

// AnalyzeWellness 根据按天对齐的活动次数、情绪分与消耗热量序列生成分析结果。
// 情绪分为 0 的日期视为未记录；有效天数不足 3 天时返回固定的降级结果。
// 展示用的 Pearson 系数基于完整序列计算，回归只使用有效日期的数据。
func AnalyzeWellness(activities, moods, calories []int) WellnessAnalysis {
	n := min(len(activities), len(moods), len(calories))

	var fx1, fx2, fy []float64
	for i := 0; i < n; i++ {
		if moods[i] > 0 {
			fx1 = append(fx1, float64(activities[i]))
			fx2 = append(fx2, float64(calories[i]))
			fy = append(fy, float64(moods[i]))
		}
	}

	if len(fy) < minMoodDays {
		return WellnessAnalysis{
			Insights:       []string{insufficientInsight},
			Recommendation: insufficientRecommendation,
			ValidDays:      len(fy),
		}
	}

	act := toFloats(activities[:n])
	mood := toFloats(moods[:n])
	cal := toFloats(calories[:n])

	activityCorr := pearson(act, mood)
	calorieCorr := pearson(cal, mood)

	intercept, coef := fitRegression(fx1, fx2, fy)
	predicted := intercept + coef[0]*predictionPoint[0] + coef[1]*predictionPoint[1]
	if math.IsNaN(predicted) || math.IsInf(predicted, 0) {
		predicted = 0
	}

	insights, recommendation := wellnessInsights(activityCorr, calorieCorr)

	return WellnessAnalysis{
		ActivityMoodCorrelation: activityCorr,
		CalorieMoodCorrelation:  calorieCorr,
		PredictedMood:           predicted,
		Insights:                insights,
		Recommendation:          recommendation,
		SufficientData:          true,
		ValidDays:               len(fy),
	}
}

func wellnessInsights(activityCorr, calorieCorr float64) ([]string, string) {
	insights := make([]string, 0, 2)

	switch {
	case activityCorr > activityStrongPositive:
		insights = append(insights, "Active days line up strongly with your best moods.")
	case activityCorr < activityNegative:
		insights = append(insights, "Your mood tends to dip on your busiest activity days.")
	default:
		insights = append(insights, "Activity and mood show no clear relationship this week.")
	}

	switch {
	case calorieCorr > calorieStrongPositive:
		insights = append(insights, "Burning more calories goes together with a better mood.")
	case calorieCorr < calorieNegative:
		insights = append(insights, "High calorie-burn days come with a lower mood.")
	default:
		insights = append(insights, "Calorie burn has little effect on your mood this week.")
	}

	var recommendation string
	switch {
	case activityCorr > combinedPositive && calorieCorr > combinedPositive:
		recommendation = "Keep your active routine going: both movement and energy expenditure are lifting your mood."
	case activityCorr > activityStrongPositive:
		recommendation = "Plan a short walk or workout on days when your mood starts low."
	case activityCorr < activityNegative || calorieCorr < calorieNegative:
		recommendation = "Balance intense sessions with rest and recovery days."
	case calorieCorr > calorieStrongPositive:
		recommendation = "Moderate-intensity workouts appear to support your mood."
	default:
		recommendation = "Keep logging activities and moods to uncover clearer patterns."
	}

	return insights, recommendation
}

// pearson 计算样本相关系数，任一序列方差为 0 时返回 0
func pearson(x, y []float64) float64 {
	n := min(len(x), len(y))
	if n < 2 {
		return 0
	}

	mx, my := mean(x[:n]), mean(y[:n])
	var sxy, sxx, syy float64
	for i := 0; i < n; i++ {
		dx := x[i] - mx
		dy := y[i] - my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}

	if sxx == 0 || syy == 0 {
		return 0
	}
	return sxy / math.Sqrt(sxx*syy)
}

// fitRegression 以最小二乘拟合 y = b0 + b1*x1 + b2*x2。
// 特征共线时退化为最小范数解，特征全为常数时系数为 0、截距为 y 的均值。
func fitRegression(x1, x2, y []float64) (float64, [2]float64) {
	var coef [2]float64
	n := min(len(x1), len(x2), len(y))
	if n == 0 {
		return 0, coef
	}

	m1, m2, my := mean(x1[:n]), mean(x2[:n]), mean(y[:n])

	// 中心化后的正规方程 [[a b] [b c]] * coef = [r1 r2]
	var a, b, c, r1, r2 float64
	for i := 0; i < n; i++ {
		d1 := x1[i] - m1
		d2 := x2[i] - m2
		dy := y[i] - my
		a += d1 * d1
		b += d1 * d2
		c += d2 * d2
		r1 += d1 * dy
		r2 += d2 * dy
	}

	det := a*c - b*b
	switch {
	case det > 1e-9*a*c && det > 0:
		coef[0] = (c*r1 - b*r2) / det
		coef[1] = (a*r2 - b*r1) / det
	case a+c > 0:
		// 秩为 1：矩阵为 λuuᵀ，伪逆解为 (u·r/λ)u
		lambda := a + c
		u1 := math.Sqrt(a / lambda)
		u2 := math.Sqrt(c / lambda)
		if b < 0 {
			u2 = -u2
		}
		scale := (u1*r1 + u2*r2) / lambda
		coef[0] = scale * u1
		coef[1] = scale * u2
	}

	intercept := my - coef[0]*m1 - coef[1]*m2
	return intercept, coef
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func toFloats(values []int) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}
