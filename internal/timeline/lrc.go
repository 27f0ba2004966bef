package timeline

import (
	"bufio"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	lrcTagRe  = regexp.MustCompile(`\[(\d{1,3}):(\d{2})(?:[.:](\d{1,3}))?\]`)
	lrcMetaRe = regexp.MustCompile(`^\[[a-zA-Z]+:.*\]$`)
)

// ParseLRC 解析 LRC 文本。一行可以带多个时间标签，结果按时间稳定排序。
func ParseLRC(lrc string) Timeline {
	scanner := bufio.NewScanner(strings.NewReader(lrc))
	var result Timeline

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || lrcMetaRe.MatchString(line) {
			continue
		}

		tags := lrcTagRe.FindAllStringSubmatchIndex(line, -1)
		if len(tags) == 0 {
			continue
		}
		text := strings.TrimSpace(line[tags[len(tags)-1][1]:])

		for _, tag := range tags {
			match := lrcTagRe.FindStringSubmatch(line[tag[0]:tag[1]])
			min, _ := strconv.Atoi(match[1])
			sec, _ := strconv.Atoi(match[2])
			ms := 0
			if msStr := match[3]; msStr != "" {
				ms, _ = strconv.Atoi(msStr)
				// 按位数换算毫秒：.1 => 100ms，.49 => 490ms
				switch len(msStr) {
				case 1:
					ms *= 100
				case 2:
					ms *= 10
				}
			}
			timestamp := float64(min*60+sec) + float64(ms)/1000
			result = append(result, Line{Timestamp: timestamp, Text: text})
		}
	}

	sort.SliceStable(result, func(i, j int) bool { return result[i].Timestamp < result[j].Timestamp })
	return result
}
