package crm

// Stage 销售漏斗中的一个阶段
type Stage struct {
	Name  string
	Count int
}

// StageConversion 相邻两个阶段之间的转化
type StageConversion struct {
	From, To string
	// Rate 为 To/From，From 为 0 时为 0
	Rate float64
}

// DefaultFunnel 仪表盘上展示的漏斗
var DefaultFunnel = []Stage{
	{"Qualification", 16},
	{"Presentation", 9},
	{"Proposal", 6},
	{"Contracting", 3},
	{"Closed won", 1},
}

// Conversions 计算相邻阶段的转化率
func Conversions(stages []Stage) []StageConversion {
	if len(stages) < 2 {
		return nil
	}
	out := make([]StageConversion, 0, len(stages)-1)
	for i := 1; i < len(stages); i++ {
		c := StageConversion{From: stages[i-1].Name, To: stages[i].Name}
		if stages[i-1].Count > 0 {
			c.Rate = float64(stages[i].Count) / float64(stages[i-1].Count)
		}
		out = append(out, c)
	}
	return out
}

// WorstDropOff 返回转化率最低的一步，ok 为 false 表示阶段不足
func WorstDropOff(stages []Stage) (StageConversion, bool) {
	conv := Conversions(stages)
	if len(conv) == 0 {
		return StageConversion{}, false
	}
	worst := conv[0]
	for _, c := range conv[1:] {
		if c.Rate < worst.Rate {
			worst = c
		}
	}
	return worst, true
}
