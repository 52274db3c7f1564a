/*
Package cpulist converts between the two textual CPU set representations
exposed by the Linux kernel for interrupt affinities and 64-bit affinity
bitmasks.

  - [List] stores CPU numbers as inclusive ranges, such as 1-4,8-15; this is
    the format of “smp_affinity_list” procfs files.
  - [Mask] stores CPU numbers as bits of a single 64-bit word; this is the
    format of “affinity_hint” procfs files, written as comma-separated
    32-bit hex words.

[Mask.List] compresses a mask into its range list, [List.Mask] goes the
opposite way. The empty mask renders as the literal token “none”.
*/
package cpulist
