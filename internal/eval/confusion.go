package eval

// Confusion is a binary confusion matrix.
type Confusion struct {
	TP int `json:"tp"`
	FP int `json:"fp"`
	TN int `json:"tn"`
	FN int `json:"fn"`
}

// ConfusionAt predicts positive iff score >= threshold.
func ConfusionAt(scores []float64, labels []int, threshold float64) Confusion {
	var c Confusion

	for i, score := range scores {
		predicted := Predict(score, threshold)
		actual := labels[i] == 1

		switch {
		case predicted && actual:
			c.TP++
		case predicted && !actual:
			c.FP++
		case !predicted && actual:
			c.FN++
		default:
			c.TN++
		}
	}

	return c
}

// Predict reports whether score is classified malicious. Ties are positive.
func Predict(score, threshold float64) bool {
	return score >= threshold
}

// Total is the number of samples counted.
func (c Confusion) Total() int {
	return c.TP + c.FP + c.TN + c.FN
}

// Precision is TP/(TP+FP), or 0 without positive predictions.
func (c Confusion) Precision() float64 {
	return ratio(c.TP, c.TP+c.FP)
}

// Recall is TP/(TP+FN), or 0 without positive samples.
func (c Confusion) Recall() float64 {
	return ratio(c.TP, c.TP+c.FN)
}

// F1 is the harmonic mean of precision and recall, or 0 when both are 0.
func (c Confusion) F1() float64 {
	p, r := c.Precision(), c.Recall()
	if p+r == 0 {
		return 0
	}

	return 2 * p * r / (p + r)
}

// Accuracy is (TP+TN)/total.
func (c Confusion) Accuracy() float64 {
	return ratio(c.TP+c.TN, c.Total())
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}

	return float64(num) / float64(den)
}
