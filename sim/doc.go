// Package sim runs the time driver against simulated hardware: a settable
// mtime clock, a TIM64-style one-shot register file and a PLIC. Machine
// advances simulated time and delivers the timer interrupt the way the
// external interrupt dispatcher does on the board.
package sim
