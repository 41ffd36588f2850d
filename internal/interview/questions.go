package interview

import (
	"fmt"
	"strings"

	"career-agent-go/internal/constants"
)

// 内置题库按难度分档，LLM不可用时使用。
// 问题用%s占位岗位名称。
var questionBank = map[string][]string{
	DifficultyEasy: {
		"请先做一个简单的自我介绍，说说你为什么想做%s这份工作",
		"说说你最熟悉的一个项目，你在其中负责什么",
		"你平时通过什么方式学习新技术",
		"遇到解决不了的问题时你一般怎么处理",
		"描述一次你和同事意见不一致的经历，最后是怎么解决的",
		"你了解我们这个岗位的日常工作内容吗",
		"说一个你最近学到的新知识",
		"你如何安排多个任务的优先级",
		"你理想中的团队氛围是什么样的",
		"你对未来一两年的职业规划是什么",
	},
	DifficultyMedium: {
		"作为%s，请讲一个你主导过的最有挑战的项目，难点在哪里",
		"描述一次你在线上发现并定位问题的完整过程",
		"当需求在开发中途发生大改时，你会怎么应对",
		"说说你做过的一次技术选型，当时权衡了哪些因素",
		"你如何保证自己交付内容的质量",
		"讲一次你推动团队改进流程或工具的经历",
		"如果你接手了一个文档缺失的老系统，你会从哪里入手",
		"描述一次你的方案被否定的经历，你是怎么回应的",
		"你如何评估一项任务需要的时间",
		"说说你在协作中踩过的一个坑以及后来的改进",
	},
	DifficultyHard: {
		"作为资深%s，请设计一个支撑现有规模十倍流量的方案，说明关键取舍",
		"讲一个你为团队定下技术方向的案例，事后验证结果如何",
		"描述一次你处理的最严重的线上事故，复盘得出了什么",
		"当业务方的要求与技术债务冲突时，你如何决策与沟通",
		"你如何带动团队里比你资深的成员认同你的方案",
		"讲一个你主动砍掉需求或推迟上线的决定，依据是什么",
		"系统的可用性与迭代速度冲突时，你的取舍框架是什么",
		"描述一次你跨团队推进的项目，阻力来自哪里，你怎么化解",
		"你如何判断一项新技术值得引入生产环境",
		"如果让你从零搭建这个岗位所在的团队，你会怎么规划前三个月",
	},
}

// fallbackQuestions 从内置题库取题并填入岗位名称
func fallbackQuestions(jobTitle, difficulty string) []string {
	bank, ok := questionBank[difficulty]
	if !ok {
		bank = questionBank[DifficultyMedium]
	}

	questions := make([]string, 0, constants.MaxInterviewQuestions)
	for _, q := range bank {
		if len(questions) >= constants.MaxInterviewQuestions {
			break
		}
		if strings.Contains(q, "%s") {
			questions = append(questions, fmt.Sprintf(q, jobTitle))
		} else {
			questions = append(questions, q)
		}
	}
	return questions
}

// fallbackEvaluation 确定性兜底评估，按回答长度给基础分
func fallbackEvaluation(answer string) *AnswerEval {
	length := len([]rune(strings.TrimSpace(answer)))
	eval := &AnswerEval{}

	switch {
	case length == 0:
		eval.Score = 0
		eval.Improvements = []string{"没有收到回答内容"}
	case length < 20:
		eval.Score = 4
		eval.Improvements = []string{"回答过于简短，建议结合具体例子展开"}
	case length < 100:
		eval.Score = 6
		eval.Strengths = []string{"回答切题"}
		eval.Improvements = []string{"可以补充更多细节和量化结果"}
	default:
		eval.Score = 7
		eval.Strengths = []string{"回答完整，有一定展开"}
		eval.Improvements = []string{"智能评估暂不可用，本分数仅基于回答篇幅"}
	}
	return eval
}
